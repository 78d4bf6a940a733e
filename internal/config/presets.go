package config

var Presets = map[string]map[string]*Config{
	"fusion": {
		"ignition": {
			Lab: "fusion", Rate: 60, Duration: 120,
			Knobs: map[string]float64{"heater": 75, "containment": 60, "injection": 0.5},
		},
		"slow-burn": {
			Lab: "fusion", Rate: 60, Duration: 300,
			Knobs: map[string]float64{"heater": 45, "containment": 70, "injection": 0.2},
		},
		"flameout": {
			Lab: "fusion", Rate: 60, Duration: 90,
			Knobs: map[string]float64{"heater": 30, "containment": 40},
		},
	},
	"chain": {
		"critical": {
			Lab: "chain", Rate: 60, Duration: 120,
			Knobs: map[string]float64{"moderator": 55, "reflector": 40},
		},
		"runaway": {
			Lab: "chain", Rate: 60, Duration: 60,
			Knobs: map[string]float64{"moderator": 85, "reflector": 70},
		},
		"damped": {
			Lab: "chain", Rate: 60, Duration: 180,
			Knobs: map[string]float64{"moderator": 20, "reflector": 10},
		},
	},
	"decay": {
		"bare": {
			Lab: "decay", Rate: 60, Duration: 180,
			Knobs: map[string]float64{"shielding": 0, "agitation": 12},
		},
		"shielded": {
			Lab: "decay", Rate: 60, Duration: 240,
			Knobs: map[string]float64{"shielding": 80, "agitation": 5},
		},
		"stirred": {
			Lab: "decay", Rate: 60, Duration: 120,
			Knobs: map[string]float64{"shielding": 10, "agitation": 60},
		},
	},
	"detonation": {
		"firing": {
			Lab: "detonation", Rate: 120, Duration: 30,
			Knobs: map[string]float64{"compression": 85, "tamper": 70},
		},
		"fizzle": {
			Lab: "detonation", Rate: 120, Duration: 30,
			Knobs: map[string]float64{"compression": 40, "tamper": 20},
		},
		"dud": {
			Lab: "detonation", Rate: 60, Duration: 60,
			Knobs: map[string]float64{"compression": 10, "tamper": 50},
		},
	},
	"irradiation": {
		"gentle": {
			Lab: "irradiation", Rate: 60, Duration: 180,
			Knobs: map[string]float64{"beam": 20, "annealing": 2},
		},
		"harsh": {
			Lab: "irradiation", Rate: 60, Duration: 120,
			Knobs: map[string]float64{"beam": 85, "annealing": 0},
		},
		"annealed": {
			Lab: "irradiation", Rate: 60, Duration: 240,
			Knobs: map[string]float64{"beam": 60, "annealing": 6},
		},
	},
}

func GetPreset(lab, preset string) *Config {
	labPresets, ok := Presets[lab]
	if !ok {
		return nil
	}
	cfg, ok := labPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(lab string) []string {
	labPresets, ok := Presets[lab]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(labPresets))
	for name := range labPresets {
		names = append(names, name)
	}
	return names
}

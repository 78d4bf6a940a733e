package control

import "github.com/arvi-k/physlab/internal/core"

type None struct{}

func NewNone() *None {
	return &None{}
}

func (*None) Drive(snap core.Snapshot, q *core.IntentQueue) {}

package labs_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLabs(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Labs Suite")
}

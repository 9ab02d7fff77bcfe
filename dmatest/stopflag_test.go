//go:build unix

package dmatest

import (
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StopFlag", func() {
	It("should be lowered initially", func() {
		stop := &StopFlag{}

		Expect(stop.Raised()).To(BeFalse())

		stop.Raise()
		Expect(stop.Raised()).To(BeTrue())
	})

	It("should be raised by a signal", func() {
		stop := &StopFlag{}
		cancel := stop.NotifyOnSignal(syscall.SIGUSR1)
		defer cancel()

		Expect(syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)).To(Succeed())

		Eventually(stop.Raised).Should(BeTrue())
	})

	It("should allow cancel to be called twice", func() {
		stop := &StopFlag{}
		cancel := stop.NotifyOnSignal(syscall.SIGUSR2)

		Expect(func() {
			cancel()
			cancel()
		}).NotTo(Panic())
		Expect(stop.Raised()).To(BeFalse())
	})
})

package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LogHook", func() {
	It("should be accepted as a hook", func() {
		base := &HookableBase{}
		base.AcceptHook(NewLogHook(2))

		Expect(func() {
			base.InvokeHook(HookCtx{Pos: hookPosTest, Item: 42})
			base.InvokeHook(HookCtx{})
		}).NotTo(Panic())
		Expect(base.NumHooks()).To(Equal(1))
	})
})

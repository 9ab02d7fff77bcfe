package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var hookPosTest = &HookPos{Name: "Test"}

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		seen []any
		hook *HookFunc
	)

	BeforeEach(func() {
		base = &HookableBase{}
		seen = nil

		f := HookFunc(func(ctx HookCtx) {
			seen = append(seen, ctx.Item)
		})
		hook = &f
	})

	It("should invoke registered hooks in order", func() {
		var order []string
		first := HookFunc(func(HookCtx) { order = append(order, "first") })
		second := HookFunc(func(HookCtx) { order = append(order, "second") })

		base.AcceptHook(&first)
		base.AcceptHook(&second)
		base.InvokeHook(HookCtx{Pos: hookPosTest})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(order).To(Equal([]string{"first", "second"}))
	})

	It("should pass the item to the hook", func() {
		base.AcceptHook(hook)

		base.InvokeHook(HookCtx{Pos: hookPosTest, Item: 42})

		Expect(seen).To(Equal([]any{42}))
		Expect(base.Hooks()).To(HaveLen(1))
	})

	It("should panic on a duplicated hook", func() {
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})
})

package dmatest

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
)

// A StopFlag asks a running engine to stop. The engine observes it at the
// top of every iteration.
type StopFlag struct {
	raised atomic.Bool
}

// Raise sets the flag.
func (f *StopFlag) Raise() {
	f.raised.Store(true)
}

// Raised reports whether the flag is set.
func (f *StopFlag) Raised() bool {
	return f.raised.Load()
}

// NotifyOnSignal raises the flag when one of the signals arrives. The
// returned function stops the relay.
func (f *StopFlag) NotifyOnSignal(sigs ...os.Signal) (cancel func()) {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})

	signal.Notify(ch, sigs...)

	go func() {
		select {
		case sig := <-ch:
			glog.V(1).Infof("received %v, stopping", sig)
			f.Raise()
		case <-done:
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

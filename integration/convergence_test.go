//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestOptimalConvergence(t *testing.T) {
	defer goleak.VerifyNone(t)

	vh := &VirtualHarness{}
	defer vh.Stop()
	require.NoError(t, vh.NewNode("a"))
	require.NoError(t, vh.NewNode("b"))
	require.NoError(t, vh.NewNode("c"))

	// a <-10-> b
	_, err := vh.AddLink("a", "b", 10)
	require.NoError(t, err)
	// c <-50-> a
	_, err = vh.AddLink("a", "c", 50)
	require.NoError(t, err)

	errs := vh.Start()

	conv1 := NewSignal() // first stage convergence: c <-50-> a <-10-> b
	conv2 := NewSignal() // second stage convergence: a <-10-> b <-10-> c
	done := NewSignal()
	defer done.Trigger()

	go func() {
		for !done.Triggered() {
			path, err := vh.Path("a", "c")
			if err == nil {
				switch path {
				case "a ->(50) c":
					conv1.Trigger()
				case "a ->(10) b ->(10) c":
					if conv1.Triggered() {
						conv2.Trigger()
					}
				}
			}
			select {
			case <-done:
			case <-time.After(tick):
			}
		}
	}()

	select {
	case <-conv1:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for the direct path")
	case err := <-errs:
		t.Fatal(err)
	}

	// b <-10-> c, only b dials
	_, err = vh.Connect("b", "c", 10)
	require.NoError(t, err)

	select {
	case <-conv2:
		t.Log("Reached optimal!")
	case <-time.After(waitFor):
		t.Error("timed out waiting for the optimal path")
	case err := <-errs:
		t.Error(err)
	}

	// c learned the weight of the link it did not dial
	require.Eventually(t, func() bool {
		path, err := vh.Path("c", "b")
		return err == nil && path == "c ->(10) b"
	}, waitFor, tick)
}

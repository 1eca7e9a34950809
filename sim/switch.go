package sim

// Switcher transfers the CPU from one thread to another. Switch returns on
// old's goroutine once some later switch targets old again.
type Switcher interface {
	Switch(old, next *Thread)
}

// goroutineSwitcher runs every thread on its own goroutine and passes a baton
// between them: exactly one goroutine is unparked at any time.
type goroutineSwitcher struct{}

func (goroutineSwitcher) Switch(old, next *Thread) {
	if old == next {
		return
	}
	next.resume <- struct{}{}
	old.park()
}

package engine

import (
	"context"
	"fmt"
	"sync"
)

// Proc is a long-running background loop bound to a context. It must not
// return until ctx is done (or with an error if something goes wrong).
type Proc func(context.Context) error

// ProcMgr is like a fancy implementation of sync.WaitGroup: load it up with
// Procs and Run blocks until ctx is canceled and every Proc has exited.
type ProcMgr struct {
	procs []Proc
}

func (p *ProcMgr) Add(proc Proc) { p.procs = append(p.procs, proc) }

func (p *ProcMgr) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, proc := range p.procs {
		wg.Add(1)
		go func(proc Proc) {
			defer wg.Done()
			err := proc(ctx)
			if err == nil && ctx.Err() == nil {
				panic("a proc returned unexpectedly!")
			}
			if err != nil && ctx.Err() == nil {
				panic(fmt.Sprintf("proc returned an error: %s", err))
			}
		}(proc)
	}
	wg.Wait()
}

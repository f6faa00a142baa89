// Command kcoresim boots a simulated multi-hart instance of the core:
// it stands up the physical allocator, per-CPU magazines, slab caches,
// and kernel page table, spawns one boot task per hart, and drives each
// hart's scheduler until every boot task completes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"eonixcore"
	"eonixcore/internal/archspec"
	"eonixcore/internal/diag"
	"eonixcore/internal/pagecache"
	"eonixcore/internal/paging"
	"eonixcore/internal/percpu"
	"eonixcore/internal/physmem"
	"eonixcore/internal/slab"
	"eonixcore/internal/taskctx"
)

func main() {
	nharts := flag.Int("harts", 4, "number of simulated harts to boot")
	npages := flag.Int("pages", 4096, "number of 4KiB pages in the simulated arena")
	profilePath := flag.String("profile", "", "write a pprof snapshot of allocator state to this path on exit")
	timeout := flag.Duration("timeout", 5*time.Second, "abort the boot simulation after this long")
	flag.Parse()

	if err := run(*nharts, *npages, *profilePath, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "kcoresim: %v\n", err)
		os.Exit(1)
	}
}

func run(nharts, npages int, profilePath string, timeout time.Duration) error {
	arena, err := physmem.NewArena(npages, 0)
	if err != nil {
		return fmt.Errorf("reserving arena: %w", err)
	}
	defer arena.Close()

	magazines := pagecache.New(arena, nharts)
	slabs := slab.NewCache(arena, 64)
	kernelTable := paging.NewKernel(arena, archspec.X86_64)
	diag.Logf("booted kernel page table at root pfn %d", kernelTable.RootPFN())

	roots := paging.NewRootRegister(nharts)

	rt := eonixcore.NewRuntime(nharts)
	harts := make([]*percpu.Hart, nharts)
	joins := make([]*eonixcore.JoinHandle, nharts)

	for i := 0; i < nharts; i++ {
		harts[i] = percpu.NewHart(i)
		roots.SetRootPageTable(harts[i], kernelTable)
		hc := magazines.For(harts[i])
		id := i
		joins[i] = rt.Spawn(func(self *taskctx.TaskContext, task *eonixcore.Task) any {
			return bootHart(id, hc, slabs)
		})
		diag.Logf("hart %d active root pfn %d", i, roots.ActiveRootPFN(harts[i]))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var g errgroup.Group
	for i := 0; i < nharts; i++ {
		h := harts[i]
		g.Go(func() error {
			rt.Enter(ctx, h)
			return nil
		})
	}

	for i, jh := range joins {
		result, err := jh.Join(ctx)
		if err != nil {
			return fmt.Errorf("hart %d boot task did not complete: %w", i, err)
		}
		diag.Logf("hart %d boot task returned %v", i, result)
	}
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}

	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("opening profile output: %w", err)
		}
		defer f.Close()
		p := diag.Capture(arena, magazines, slabs)
		if err := diag.WriteTo(f, p); err != nil {
			return fmt.Errorf("writing profile: %w", err)
		}
		diag.Logf("wrote allocator profile to %s", profilePath)
	}
	return nil
}

// bootHart exercises the allocation path this hart will use once real
// tasks run: take a page through the magazine, carve a few slab objects
// out of it by way of the slab cache, then give everything back.
func bootHart(id int, hc *pagecache.HartCache, slabs *slab.Cache) string {
	pfn, ok := hc.AllocOrder(0)
	if !ok {
		diag.Fatal("hart %d: out of memory during boot self-test", id)
	}
	hc.Dealloc(pfn, 0)

	ptrs := make([]unsafe.Pointer, 0, 4)
	for i := 0; i < 4; i++ {
		ptrs = append(ptrs, slabs.Alloc())
	}
	for _, p := range ptrs {
		slabs.Dealloc(p, 64)
	}
	return fmt.Sprintf("hart %d ready", id)
}

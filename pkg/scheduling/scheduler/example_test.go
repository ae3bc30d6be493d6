package scheduler_test

import (
	"fmt"
	"log"
	"time"

	"github.com/vnykmshr/pauseflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/pauseflow/pkg/scheduling/workerpool"
)

// Example shows a pool held during a nightly maintenance window.
func Example() {
	pool, err := workerpool.New(4, 100)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Shutdown()

	s, err := scheduler.New(pool, scheduler.WithLocation(time.UTC))
	if err != nil {
		log.Fatal(err)
	}

	err = s.AddWindow(scheduler.Window{
		Name:     "maintenance",
		PauseAt:  "0 2 * * *",
		ResumeAt: "30 2 * * *",
	})
	if err != nil {
		log.Fatal(err)
	}

	probe := time.Date(2026, time.March, 1, 2, 15, 0, 0, time.UTC)
	name, inside := s.InWindow(probe)
	fmt.Println(name, inside)

	next, _ := s.NextTransition(probe)
	fmt.Println(next.Action, next.At.Format("15:04"))

	// Output:
	// maintenance true
	// resume 02:30
}

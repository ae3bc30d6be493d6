/*
Package distributed coordinates pause state across many processes through Redis.

Every instance of a fleet attaches its pool to a Controller sharing the same
key. Any instance, or an operator tool, can then pause or resume the whole
fleet:

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctrl, err := distributed.NewController(distributed.Config{
		Redis: client,
		Key:   "ingest",
	})
	if err != nil {
		return err
	}

	sub, err := ctrl.Attach(ctx, pool)
	if err != nil {
		return err
	}
	defer sub.Close()

	// Elsewhere
	ctrl.Pause(ctx)

Keys:

	<key>:paused    - "1" while the fleet is paused, "0" or absent otherwise
	<key>:commands  - pub/sub channel carrying JSON Command messages

The flag is written and the command published in one MULTI/EXEC transaction.
Attach subscribes before reading the flag, so an instance joining while the
fleet is paused starts paused and cannot miss a later resume.
*/
package distributed

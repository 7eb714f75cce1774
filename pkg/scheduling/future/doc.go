// Package future provides Handle, the result slot returned for value-producing
// tasks submitted to a manager.
//
// A handle starts Pending and is settled exactly once, by the worker that ran
// the task, into Completed, Failed or Cancelled:
//
//	h, err := manager.SubmitWithResult(m, func(ctx context.Context) (int, error) {
//		return 42, nil
//	})
//	if err != nil {
//		return err
//	}
//	v, err := h.AwaitTimeout(time.Second)
//
// Cancel cancels the task's context. Tasks that honour the context return an
// interruption error, which settles the handle as Cancelled.
package future

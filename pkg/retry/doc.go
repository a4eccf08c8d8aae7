// Package retry provides configurable retry logic with pluggable backoff
// strategies and context-aware cancellation.
//
// It is used around browser-driver operations whose failures are
// transient (locator timeouts, navigation hiccups). The default predicate
// retries driver timeouts and refuses to retry fatal driver errors or
// cancelled contexts.
//
//	err := retry.Do(func() error {
//		return page.Navigate(ctx, url)
//	}, &retry.Config{
//		MaxAttempts: 2,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//		RetryIf:     retry.DefaultRetryIf,
//		Context:     ctx,
//	})
package retry

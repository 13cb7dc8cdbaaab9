// Package swrcache is a stale-while-revalidate cache for client code.
// Callers read the last known state of a resource at once, revalidate it in
// the background and get notified when a newer state lands.
//
// Components:
//   - Core: in-memory states per cache key, optional byte Storage beneath
//     (ristretto, bigcache, redis), per-key FIFO locks and a change bus.
//   - Single: one entity. Fetch (cooldown-gated), Refetch, optimistic
//     Update with rollback, nested entity writes via Normalize.
//   - Scroll: a paged list kept as one state and grown page by page.
//
// States:
//
//	Data + Err may coexist: a failed refresh keeps the last good data.
//	Cooldown   - unforced fetches before it return the cached state.
//	Expiration - the state reads as absent after it.
//	Optimistic - unconfirmed local write, never persisted.
//
// Storage keys:
//
//	<ns>:<key>        - single entries
//	<ns>:scroll:<key> - paged lists, keyed by the first page's key
//
// Usage:
//
//	core, _ := swrcache.New(swrcache.Options{
//	    Namespace: "app",
//	    Logger:    zaplog.New(logger),
//	})
//	defer core.Close(ctx)
//
//	user := swrcache.NewSingle(core, userID, fetchUser, swrcache.ResourceOptions[User]{
//	    Storage:  rist,
//	    Cooldown: 5 * time.Second,
//	})
//	sub, _ := user.Subscribe(render)
//	defer user.Unsubscribe(ctx, sub)
//	_, _ = user.Fetch(ctx)
package swrcache

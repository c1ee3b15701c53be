// Package notify implements the per-session notification queue.
//
// Every published notification schedules its own removal with
// time.AfterFunc, so there is no sweeper goroutine and expiry of one entry
// never affects another. Subscribers receive each notification once;
// publishing never blocks on a slow subscriber.
package notify

package svcreg

import "context"

// Disposable is implemented by services that hold resources needing cleanup.
// The registry calls Close when it destroys the instance: on scope teardown,
// on weak-registration override, and on registry Close.
//
// Example:
//
//	type ConnectionPool struct {
//	    db *sql.DB
//	}
//
//	func (p *ConnectionPool) Close() error {
//	    return p.db.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext allows disposal with a context for graceful
// shutdown. When a service implements both interfaces, the context-aware
// variant wins.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// dispose runs the instance's disposal hook, preferring the context-aware
// variant. Instances implementing neither interface need no cleanup.
func dispose(ctx context.Context, instance any) error {
	switch v := instance.(type) {
	case DisposableWithContext:
		return v.Close(ctx)
	case Disposable:
		return v.Close()
	default:
		return nil
	}
}

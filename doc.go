// Package iocoro is a single-process asynchronous I/O runtime: a reactor
// core driving a min-heap timer registry and per-fd readiness registry, a
// goroutine-backed Task[T]/Executor model for composing asynchronous work,
// and a socket layer (TCP, UDP, Unix-domain stream and datagram) built on
// top of both.
//
// A typical program constructs a Reactor, spawns work onto it, and calls
// Run:
//
//	r, _ := iocoro.NewReactor(iocoro.ReactorConfig{})
//	defer r.Close()
//	iocoro.SpawnDetached(ctx, func(ctx context.Context) {
//	    conn, _ := iocoro.DialTCP(ctx, r, "127.0.0.1:9000")
//	    defer conn.Close()
//	    conn.Write(ctx, []byte("hello"))
//	})
//	r.Run()
package iocoro

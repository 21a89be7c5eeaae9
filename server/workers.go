package server

// workerPool caps how many connections a service handles at once.
// Acceptors take a slot before spawning a session and put it back
// when the session ends, so connection number workers+1 waits in
// the accept loop.
type workerPool struct {
	slots chan struct{}
}

func newWorkerPool(size int) *workerPool {
	return &workerPool{slots: make(chan struct{}, size)}
}

func (p *workerPool) acquire() {
	p.slots <- struct{}{}
}

func (p *workerPool) release() {
	<-p.slots
}

package domain

import "context"

// Flight - общий результат одного обновления токенов.
// Все ожидающие получают один и тот же результат; Resolve вызывается ровно один раз.
type Flight struct {
	done chan struct{}
	pair TokenPair
	err  error
}

// NewFlight создает незавершенный Flight.
func NewFlight() *Flight {
	return &Flight{done: make(chan struct{})}
}

// Resolve публикует результат и будит всех ожидающих.
func (f *Flight) Resolve(pair TokenPair, err error) {
	f.pair = pair
	f.err = err
	close(f.done)
}

// Done закрывается после Resolve.
func (f *Flight) Done() <-chan struct{} {
	return f.done
}

// Wait ждет результат или отмену ctx. Отмена затрагивает только вызывающего.
func (f *Flight) Wait(ctx context.Context) (TokenPair, error) {
	select {
	case <-f.done:
		return f.pair, f.err
	case <-ctx.Done():
		return TokenPair{}, FromContext("refresh wait", ctx.Err())
	}
}

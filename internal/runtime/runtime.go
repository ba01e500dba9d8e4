package runtime

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"lookout/internal/logging"
	"lookout/internal/producer"
	"lookout/internal/store"
)

// Options configures the synchronizer runtime.
type Options struct {
	API             API
	Store           store.AccountStore
	ItemsDir        string
	CachePath       string
	TickInterval    time.Duration
	ScanConcurrency int
	Logger          logging.Logger
}

// Runtime drives one session actor per stored account. Each actor owns its
// state and consumes messages one at a time; all I/O happens in effect
// goroutines whose results come back as messages.
type Runtime struct {
	engine   *producer.Engine
	api      API
	accounts store.AccountStore
	cache    *cachePublisher
	itemsDir string
	tick     time.Duration
	log      logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

type session struct {
	name string
	msgs chan producer.Msg
}

func New(opts Options) (*Runtime, error) {
	if opts.API == nil {
		return nil, errors.New("runtime requires an api client")
	}
	if opts.Store == nil {
		return nil, errors.New("runtime requires an account store")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	return &Runtime{
		engine:   producer.NewEngine(opts.ScanConcurrency),
		api:      opts.API,
		accounts: opts.Store,
		cache:    newCachePublisher(opts.CachePath),
		itemsDir: opts.ItemsDir,
		tick:     tick,
		log:      log,
		sessions: map[string]*session{},
	}, nil
}

// Run restores every stored account and blocks until ctx is cancelled and
// all session actors have drained.
func (r *Runtime) Run(ctx context.Context) error {
	names, err := r.accounts.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		account, ok, err := r.accounts.Load(ctx, name)
		if err != nil {
			r.log.Error("account restore failed", logging.F("account", name), logging.Err(err))
			continue
		}
		if !ok {
			continue
		}
		state, eff := producer.Resume(account)
		r.startSession(ctx, name, state, eff)
	}
	r.log.Info("runtime started", logging.F("accounts", len(names)), logging.F("tick", r.tick))
	<-ctx.Done()
	r.wg.Wait()
	return nil
}

// Deliver routes a message to a running session. It reports false when the
// account has no live session; such messages are dropped by design.
func (r *Runtime) Deliver(account string, msg producer.Msg) bool {
	r.mu.Lock()
	s, ok := r.sessions[account]
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case s.msgs <- msg:
		return true
	default:
		return false
	}
}

func (r *Runtime) startSession(ctx context.Context, name string, state producer.SessionState, eff producer.Effect) {
	s := &session{name: name, msgs: make(chan producer.Msg, 64)}
	r.mu.Lock()
	r.sessions[name] = s
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.sessions, name)
			r.mu.Unlock()
		}()
		r.runSession(ctx, s, state, eff)
	}()
}

func (r *Runtime) runSession(ctx context.Context, s *session, state producer.SessionState, initial producer.Effect) {
	log := r.log.With(logging.F("account", s.name))
	items, err := newItemLog(filepath.Join(r.itemsDir, s.name+".jsonl"))
	if err != nil {
		log.Error("item log unavailable", logging.Err(err))
		return
	}
	defer items.Close()

	// wake fires when the earliest scheduled fetch comes due, between the
	// coarse ticks.
	wake := time.NewTimer(time.Hour)
	if !wake.Stop() {
		<-wake.C
	}
	defer wake.Stop()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	state = r.applyEffect(ctx, s, log, items, wake, state, initial)
	if state == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			state = r.step(ctx, s, log, items, wake, state, producer.Tick{Now: now})
		case <-wake.C:
			state = r.step(ctx, s, log, items, wake, state, producer.Tick{Now: time.Now()})
		case msg := <-s.msgs:
			state = r.step(ctx, s, log, items, wake, state, msg)
		}
		if state == nil {
			return
		}
	}
}

func (r *Runtime) step(ctx context.Context, s *session, log logging.Logger, items *itemLog, wake *time.Timer, state producer.SessionState, msg producer.Msg) producer.SessionState {
	next, eff := r.engine.Update(state, msg)
	return r.applyEffect(ctx, s, log, items, wake, next, eff)
}

func (r *Runtime) applyEffect(ctx context.Context, s *session, log logging.Logger, items *itemLog, wake *time.Timer, state producer.SessionState, eff producer.Effect) producer.SessionState {
	if len(eff.Items) > 0 {
		if err := items.Append(eff.Items); err != nil {
			log.Error("item append failed", logging.Err(err), logging.F("items", len(eff.Items)))
		} else {
			log.Debug("items appended", logging.F("items", len(eff.Items)))
		}
	}
	if eff.Cache.State != producer.CacheKeep {
		if err := r.cache.Apply(s.name, eff.Cache); err != nil {
			log.Error("cache publish failed", logging.Err(err))
		}
	}
	if state == nil {
		if err := r.accounts.Delete(ctx, s.name); err != nil && !errors.Is(err, store.ErrAccountNotFound) {
			log.Error("account delete failed", logging.Err(err))
		}
		log.Info("session destroyed")
		return nil
	}
	if eff.Persist {
		if account, ok := producer.PersistedOf(state); ok {
			if err := r.accounts.Save(ctx, s.name, account); err != nil {
				log.Error("account save failed", logging.Err(err))
			}
		}
	}
	if eff.NextPoll != nil {
		resetTimer(wake, time.Until(*eff.NextPoll))
	}
	for _, req := range eff.Requests {
		req := req
		go func() {
			msg := execute(ctx, r.api, req)
			if msg == nil {
				return
			}
			select {
			case s.msgs <- msg:
			case <-ctx.Done():
			}
		}()
	}
	return state
}

func resetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

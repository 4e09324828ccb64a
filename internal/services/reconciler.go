package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
	"hhsfinance/internal/ledger"
	applog "hhsfinance/internal/log"
	"hhsfinance/internal/metrics"
	"hhsfinance/internal/storage"
)

// Mode is the connection state of a Reconciler.
type Mode int

const (
	Disconnected Mode = iota
	// ConnectedIdle: logged in and online, but no usable gateway.
	ConnectedIdle
	// ConnectedLive: a subscription delivers remote changes.
	ConnectedLive
	// ConnectedManual: the gateway only supports explicit push and pull.
	ConnectedManual
)

var allModes = []Mode{Disconnected, ConnectedIdle, ConnectedLive, ConnectedManual}

func (m Mode) String() string {
	switch m {
	case Disconnected:
		return "disconnected"
	case ConnectedIdle:
		return "connected_idle"
	case ConnectedLive:
		return "connected_live"
	case ConnectedManual:
		return "connected_manual"
	default:
		return "unknown"
	}
}

// Connected reports whether local changes should be pushed.
func (m Mode) Connected() bool {
	return m != Disconnected
}

// PullResult tells what a manual pull did.
type PullResult int

const (
	PullApplied PullResult = iota + 1
	PullNotFound
)

func (r PullResult) String() string {
	switch r {
	case PullApplied:
		return "applied"
	case PullNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

var (
	ErrNoGateway    = errors.New("no sync backend configured")
	ErrDisconnected = errors.New("not connected")
	ErrClosed       = errors.New("reconciler closed")
)

// Session is the in-memory application session.
type Session struct {
	State         core.AppState
	Settings      core.Settings
	Authenticated bool
	Online        bool
	Mode          Mode
}

// Options configures a Reconciler. Preferences is required.
type Options struct {
	Preferences *storage.Preferences
	Gateway     gateway.Gateway
	Logger      *applog.Logger
	Metrics     *metrics.Metrics
	// Online is the connectivity at start.
	Online bool
	// Now defaults to time.Now.
	Now func() time.Time
	// OnPushError is called from the push goroutine for every failed
	// background push.
	OnPushError func(error)
}

// Reconciler owns the session and decides how local and remote copies of
// the state are merged. All transitions are serialized by mu; network
// calls run outside of it.
type Reconciler struct {
	prefs       *storage.Preferences
	gw          gateway.Gateway
	logger      *applog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	onPushError func(error)

	baseCtx context.Context
	cancel  context.CancelFunc
	pushes  sync.WaitGroup

	mu         sync.Mutex
	session    Session
	sub        *gateway.Subscription
	generation uint64
	closed     bool
}

// New loads the persisted session and connects if the stored login and
// the given connectivity allow it. A failed subscription leaves the
// Reconciler in ConnectedIdle and is logged, not returned.
func New(ctx context.Context, opts Options) (*Reconciler, error) {
	if opts.Preferences == nil {
		return nil, errors.New("preferences are required")
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Reconciler{
		prefs:       opts.Preferences,
		gw:          opts.Gateway,
		logger:      opts.Logger.WithComponent(applog.ComponentReconciler),
		metrics:     opts.Metrics,
		now:         opts.Now,
		onPushError: opts.OnPushError,
	}
	r.baseCtx, r.cancel = context.WithCancel(context.Background())

	state, found, err := r.prefs.LoadState(ctx)
	switch {
	case err != nil:
		r.logger.WarnContext(ctx, "Stored state unreadable, starting from defaults", applog.FieldError, err)
		state = core.DefaultState()
	case !found:
		state = core.DefaultState()
	}
	settings, err := r.prefs.Settings(ctx)
	if err != nil {
		r.cancel()
		return nil, fmt.Errorf("load settings: %w", err)
	}
	auth, err := r.prefs.Authenticated(ctx)
	if err != nil {
		r.cancel()
		return nil, fmt.Errorf("load auth flag: %w", err)
	}

	r.session = Session{
		State:         core.Normalize(state),
		Settings:      settings,
		Authenticated: auth,
		Online:        opts.Online,
	}
	r.metrics.SetTransactions(len(r.session.State.Transactions))

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(ctx); err != nil {
		r.logger.WarnContext(ctx, "Initial connection failed", applog.FieldError, err)
	}
	return r, nil
}

// Session returns a copy of the current session.
func (r *Reconciler) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	s.State = s.State.Clone()
	return s
}

func (r *Reconciler) State() core.AppState {
	return r.Session().State
}

func (r *Reconciler) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Mode
}

// GatewayName is the configured backend, or "" when there is none.
func (r *Reconciler) GatewayName() string {
	if r.gw == nil {
		return ""
	}
	return r.gw.Name()
}

// --- mutations ---

func (r *Reconciler) AddTransaction(ctx context.Context, draft core.TransactionDraft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var added core.Transaction
	err := r.mutate(ctx, applog.OpAddTransaction, func(s core.AppState) core.AppState {
		next, t := ledger.AddTransaction(s, draft, ledger.NewID())
		added = t
		return next
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return added, nil
}

// UpdateTransaction replaces the transaction with t.ID. Unknown ids are a no-op.
func (r *Reconciler) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return r.mutate(ctx, applog.OpUpdateTransaction, func(s core.AppState) core.AppState {
		return ledger.UpdateTransaction(s, t)
	})
}

func (r *Reconciler) DeleteTransaction(ctx context.Context, id string) error {
	return r.mutate(ctx, applog.OpDeleteTransaction, func(s core.AppState) core.AppState {
		return ledger.DeleteTransaction(s, id)
	})
}

// AddCategory stores a user-defined category. An empty id is generated.
func (r *Reconciler) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = ledger.NewID()
	}
	c.IsCustom = true
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	err := r.mutate(ctx, applog.OpAddCategory, func(s core.AppState) core.AppState {
		return ledger.AddCategory(s, c)
	})
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (r *Reconciler) UpdateCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.mutate(ctx, applog.OpUpdateCategory, func(s core.AppState) core.AppState {
		return ledger.UpdateCategory(s, c)
	})
}

func (r *Reconciler) DeleteCategory(ctx context.Context, id string) error {
	return r.mutate(ctx, applog.OpDeleteCategory, func(s core.AppState) core.AppState {
		return ledger.DeleteCategory(s, id)
	})
}

func (r *Reconciler) SetCurrency(ctx context.Context, code string) error {
	return r.mutate(ctx, applog.OpSetCurrency, func(s core.AppState) core.AppState {
		return ledger.SetCurrency(s, code)
	})
}

// mutate persists first; the in-memory state only changes if that worked.
func (r *Reconciler) mutate(ctx context.Context, op string, fn func(core.AppState) core.AppState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	next := fn(r.session.State)
	if err := r.prefs.SaveState(ctx, next); err != nil {
		r.logger.LogError(ctx, "Failed to persist state", err, op)
		return fmt.Errorf("persist state: %w", err)
	}
	r.session.State = next
	r.metrics.IncrMutation(op)
	r.metrics.SetTransactions(len(next.Transactions))
	r.pushLocked(op)
	return nil
}

// pushLocked sends the current snapshot in the background. Failures are
// reported but never retried and never undo the local change.
func (r *Reconciler) pushLocked(op string) {
	if !r.session.Mode.Connected() || r.gw == nil || !r.gw.Ready() {
		return
	}
	doc := backup.Encode(r.session.State.Clone(), r.session.Settings, r.now())
	r.pushes.Add(1)
	go func() {
		defer r.pushes.Done()
		if err := r.pushDoc(r.baseCtx, doc); err != nil {
			r.logger.Warn("Background push failed",
				applog.FieldOperation, op,
				applog.FieldBackend, r.gw.Name(),
				applog.FieldError, err)
			if r.onPushError != nil {
				r.onPushError(err)
			}
		}
	}()
}

func (r *Reconciler) pushDoc(ctx context.Context, doc core.BackupData) error {
	start := time.Now()
	err := r.gw.Push(ctx, doc)
	r.metrics.RecordPush(r.gw.Name(), time.Since(start), err)
	return err
}

// --- settings ---

func (r *Reconciler) SetLanguage(ctx context.Context, lang core.Language) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.prefs.SetLanguage(ctx, lang); err != nil {
		return err
	}
	r.session.Settings.Language = lang
	return nil
}

func (r *Reconciler) SetDarkMode(ctx context.Context, dark bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.prefs.SetDark(ctx, dark); err != nil {
		return err
	}
	r.session.Settings.IsDark = dark
	return nil
}

// --- connection control ---

// Login records the authenticated flag and connects when online. The
// passphrase check happens before this call.
func (r *Reconciler) Login(ctx context.Context) error {
	return r.setAuth(ctx, true)
}

// Logout stops live updates before the flag is cleared.
func (r *Reconciler) Logout(ctx context.Context) error {
	return r.setAuth(ctx, false)
}

func (r *Reconciler) setAuth(ctx context.Context, auth bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if !auth {
		r.stopSubscriptionLocked()
	}
	if err := r.prefs.SetAuthenticated(ctx, auth); err != nil {
		// flag unchanged; restore whatever connection it implies
		_ = r.transitionLocked(ctx)
		return fmt.Errorf("persist auth flag: %w", err)
	}
	r.session.Authenticated = auth
	op := applog.OpLogin
	if !auth {
		op = applog.OpLogout
	}
	r.logger.InfoContext(ctx, "Authentication changed", applog.FieldOperation, op)
	return r.transitionLocked(ctx)
}

// SetOnline feeds a connectivity change.
func (r *Reconciler) SetOnline(ctx context.Context, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.session.Online == online {
		return nil
	}
	r.session.Online = online
	if !online {
		r.logger.WarnContext(ctx, "Offline: changes are saved locally only")
	}
	return r.transitionLocked(ctx)
}

// Reconnect drops the current subscription, if any, and evaluates the
// connection again. Used after a backend became ready or failed.
func (r *Reconciler) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.stopSubscriptionLocked()
	return r.transitionLocked(ctx)
}

func (r *Reconciler) targetLocked() Mode {
	if !r.session.Authenticated || !r.session.Online {
		return Disconnected
	}
	if r.gw == nil || !r.gw.Ready() {
		return ConnectedIdle
	}
	if _, ok := r.gw.(gateway.Subscriber); ok {
		return ConnectedLive
	}
	return ConnectedManual
}

func (r *Reconciler) transitionLocked(ctx context.Context) error {
	target := r.targetLocked()
	if target != ConnectedLive {
		r.stopSubscriptionLocked()
		r.setModeLocked(ctx, target)
		return nil
	}
	if r.sub != nil {
		r.setModeLocked(ctx, ConnectedLive)
		return nil
	}

	sub, err := r.gw.(gateway.Subscriber).Subscribe(r.baseCtx)
	if err != nil {
		r.setModeLocked(ctx, ConnectedIdle)
		return fmt.Errorf("subscribe: %w", err)
	}
	r.generation++
	r.sub = sub
	go r.consume(sub, r.generation)
	r.setModeLocked(ctx, ConnectedLive)
	return nil
}

func (r *Reconciler) setModeLocked(ctx context.Context, m Mode) {
	if r.session.Mode == m {
		return
	}
	r.logger.InfoContext(ctx, "Connection mode changed",
		applog.FieldPrevMode, r.session.Mode.String(),
		applog.FieldMode, m.String())
	r.session.Mode = m
	names := make([]string, len(allModes))
	for i, mode := range allModes {
		names[i] = mode.String()
	}
	r.metrics.SetMode(m.String(), names)
}

// stopSubscriptionLocked cancels the live subscription and waits for its
// producer. Updates already in flight are discarded by the generation check.
func (r *Reconciler) stopSubscriptionLocked() {
	if r.sub == nil {
		return
	}
	r.generation++
	r.sub.Unsubscribe()
	r.sub = nil
}

func (r *Reconciler) consume(sub *gateway.Subscription, gen uint64) {
	for snap := range sub.Updates() {
		r.applyRemote(snap, gen)
	}
	if err := sub.Err(); err != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.generation != gen || r.sub != sub {
			return
		}
		r.logger.Error("Live subscription ended", applog.FieldError, err)
		r.sub = nil
		r.setModeLocked(context.Background(), ConnectedIdle)
	}
}

// applyRemote is last-writer-wins: the remote lists and currency replace
// the local ones. It is never pushed back.
func (r *Reconciler) applyRemote(snap backup.Snapshot, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.generation != gen || r.sub == nil {
		return
	}
	ctx := r.baseCtx
	if err := r.replaceStateLocked(ctx, snap.State, applog.OpRemoteUpdate); err != nil {
		r.logger.LogError(ctx, "Failed to apply remote update", err, applog.OpRemoteUpdate)
		return
	}
	r.metrics.IncrRemoteUpdate()
}

// replaceStateLocked persists incoming after archiving the snapshot it
// replaces. Persistence failure leaves the session untouched.
func (r *Reconciler) replaceStateLocked(ctx context.Context, incoming core.AppState, source string) error {
	next := core.Normalize(incoming)
	prev := r.session.State
	if !prev.Equal(next) && len(prev.Transactions) > 0 {
		if err := r.prefs.ArchiveState(ctx, source, prev); err != nil {
			r.logger.WarnContext(ctx, "Could not archive replaced state", applog.FieldError, err)
		}
	}
	if err := r.prefs.SaveState(ctx, next); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	r.session.State = next
	r.metrics.SetTransactions(len(next.Transactions))
	r.logger.InfoContext(ctx, "State replaced",
		applog.FieldSource, source,
		applog.FieldTransactions, len(next.Transactions),
		applog.FieldCategories, len(next.Categories),
		applog.FieldCurrency, next.Currency)
	return nil
}

// restoreLocked applies a full snapshot, settings included.
func (r *Reconciler) restoreLocked(ctx context.Context, snap backup.Snapshot, source string) error {
	if err := r.replaceStateLocked(ctx, snap.State, source); err != nil {
		return err
	}
	if snap.Settings == nil {
		return nil
	}
	settings := snap.Settings.Apply(r.session.Settings)
	if err := r.prefs.SaveSettings(ctx, settings); err != nil {
		r.logger.WarnContext(ctx, "Could not persist imported settings", applog.FieldError, err)
		return nil
	}
	r.session.Settings = settings
	return nil
}

// --- manual sync, import and export ---

// Push uploads the current snapshot and waits for the result.
func (r *Reconciler) Push(ctx context.Context) error {
	r.mu.Lock()
	if err := r.checkSyncLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	doc := backup.Encode(r.session.State.Clone(), r.session.Settings, r.now())
	r.mu.Unlock()

	if err := r.pushDoc(ctx, doc); err != nil {
		return fmt.Errorf("push to %s: %w", r.gw.Name(), err)
	}
	r.logger.InfoContext(ctx, "Snapshot pushed", applog.FieldBackend, r.gw.Name())
	return nil
}

// Pull downloads the remote snapshot and applies it like a restore. It
// is not pushed back.
func (r *Reconciler) Pull(ctx context.Context) (PullResult, error) {
	r.mu.Lock()
	if err := r.checkSyncLocked(); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	r.mu.Unlock()

	name := r.gw.Name()
	snap, found, err := r.gw.Pull(ctx)
	if err != nil {
		r.metrics.RecordPull(name, metrics.ResultError)
		return 0, fmt.Errorf("pull from %s: %w", name, err)
	}
	if !found {
		r.metrics.RecordPull(name, metrics.ResultNotFound)
		return PullNotFound, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	if err := r.restoreLocked(ctx, snap, applog.OpPull); err != nil {
		r.metrics.RecordPull(name, metrics.ResultError)
		return 0, err
	}
	r.metrics.RecordPull(name, metrics.ResultOK)
	return PullApplied, nil
}

func (r *Reconciler) checkSyncLocked() error {
	if r.closed {
		return ErrClosed
	}
	if r.gw == nil {
		return ErrNoGateway
	}
	if !r.session.Mode.Connected() {
		return ErrDisconnected
	}
	return nil
}

// Import restores from a backup document. A document that fails to
// decode leaves the session exactly as it was.
func (r *Reconciler) Import(ctx context.Context, data []byte) (backup.Snapshot, error) {
	snap, err := backup.Decode(data)
	if err != nil {
		r.metrics.RecordImport("unknown", err)
		r.logger.WarnContext(ctx, "Rejected backup document", applog.FieldError, err)
		return backup.Snapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return backup.Snapshot{}, ErrClosed
	}
	if err := r.restoreLocked(ctx, snap, applog.OpImport); err != nil {
		r.metrics.RecordImport(snap.Format.String(), err)
		return backup.Snapshot{}, err
	}
	r.metrics.RecordImport(snap.Format.String(), nil)
	r.pushLocked(applog.OpImport)
	return snap, nil
}

// Export builds the full backup document of the current session.
func (r *Reconciler) Export() core.BackupData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return backup.Encode(r.session.State.Clone(), r.session.Settings, r.now())
}

// Summary aggregates the current state over [from, to].
func (r *Reconciler) Summary(from, to core.Date) core.Summary {
	return core.Summarize(r.State(), from, to)
}

// WaitPushes blocks until background pushes started so far have finished.
func (r *Reconciler) WaitPushes(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.pushes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the subscription and waits for pending pushes until ctx
// expires, then cancels whatever is still running.
func (r *Reconciler) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.stopSubscriptionLocked()
	r.mu.Unlock()

	err := r.WaitPushes(ctx)
	r.cancel()
	r.logger.Info("Reconciler stopped", applog.FieldOperation, applog.OpShutdown)
	return err
}

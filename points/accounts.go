package points

import (
	"errors"
	"sort"
	"sync"
)

// =============================================================================
// ACCOUNT - Serialized access to one Engine
// =============================================================================

// Account wraps an Engine with the mutex the Engine itself does not have.
// Every call holds the lock for the full operation, so a credit or a spend
// is atomic with respect to any other call on the same account.
type Account struct {
	ID string

	mu     sync.Mutex
	engine *Engine
	closed bool
}

func NewAccount(id string) *Account {
	return &Account{ID: id, engine: NewEngine()}
}

// Do runs fn with exclusive access to the engine. Anything fn does after
// mutating the engine, such as refreshing a mirror of the balances, is
// ordered with the mutation. Returns ErrAccountClosed without calling fn
// once the account has been reset.
func (a *Account) Do(fn func(e *Engine) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAccountClosed
	}
	return fn(a.engine)
}

func (a *Account) Balances() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Balances()
}

func (a *Account) Transactions() []Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Transactions()
}

func (a *Account) Verify() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Verify()
}

// =============================================================================
// ACCOUNTS - Registry of per-user engines
// =============================================================================

// Accounts holds one Account per user id, created on first credit.
type Accounts struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

func NewAccounts() *Accounts {
	return &Accounts{accounts: make(map[string]*Account)}
}

// Get returns the account for id, if it exists.
func (r *Accounts) Get(id string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	return a, ok
}

// GetOrCreate returns the account for id, creating an empty one if needed.
func (r *Accounts) GetOrCreate(id string) *Account {
	if a, ok := r.Get(id); ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		return a
	}
	a := NewAccount(id)
	r.accounts[id] = a
	return a
}

// Do runs fn on the account for id, creating it if needed. If the account
// is reset between lookup and lock, fn runs on its replacement instead.
func (r *Accounts) Do(id string, fn func(e *Engine) error) error {
	for {
		err := r.GetOrCreate(id).Do(fn)
		if !errors.Is(err, ErrAccountClosed) {
			return err
		}
	}
}

// Reset discards the account for id. Returns ErrAccountNotFound if absent.
//
// The account's lock is held throughout: a call already inside Do finishes
// first, and cleanup (clearing anything mirrored from the account) runs
// before a replacement account can be created. If cleanup fails the
// account is left in place and the error is returned.
func (r *Accounts) Reset(id string, cleanup func() error) error {
	a, ok := r.Get(id)
	if !ok {
		return ErrAccountNotFound
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAccountNotFound // lost a race with another reset
	}
	if cleanup != nil {
		if err := cleanup(); err != nil {
			return err
		}
	}
	a.closed = true
	a.engine = NewEngine()

	r.mu.Lock()
	delete(r.accounts, id)
	r.mu.Unlock()
	return nil
}

// IDs returns the known account ids, sorted.
func (r *Accounts) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

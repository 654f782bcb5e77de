package content

import "context"

// Filter narrows List results.
type Filter struct {
	Kind  string
	Limit int
}

// Store persists content items. Implementations must honor a transaction
// carried on the context so that a mutation and its ledger writes commit or
// roll back together.
type Store interface {
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, kind string, id int64) (*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, kind string, id int64) error
	List(ctx context.Context, f Filter) ([]*Item, error)
	Exists(ctx context.Context, kind string, id int64) (bool, error)
}

// TxRunner runs fn inside a transaction. The transaction rides on the
// context fn receives; any error from fn rolls the whole unit back.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

package catalog

import (
	"context"

	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/query"
)

// Catalog defines the relational operations used by the higher layers.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type Catalog interface {
	InsertDocument(ctx context.Context, d *models.Document) (int64, error)
	ExistsDocument(ctx context.Context, hash string) (bool, error)
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	DocumentByHash(ctx context.Context, hash string) (*models.Document, error)
	DocumentIDsByHash(ctx context.Context, hashes []string) (map[string]int64, error)
	ListDocuments(ctx context.Context, raw bool) ([]models.Document, error)
	AllHashes(ctx context.Context) (map[string]struct{}, error)
	SetComment(ctx context.Context, id int64, comment string) error
	SetDeleted(ctx context.Context, id int64, deleted bool) error
	AddSource(ctx context.Context, id int64, source string) error
	RemoveSource(ctx context.Context, id int64, source string) error
	Sources(ctx context.Context, id int64) ([]string, error)

	CreateTaxonym(ctx context.Context, parent int64, name string) (int64, error)
	DeleteTaxonym(ctx context.Context, id int64) error
	RenameTaxonym(ctx context.Context, id int64, name string) error
	AddAlias(ctx context.Context, id int64, alias string) error
	RemoveAlias(ctx context.Context, id int64, alias string) error
	AddParent(ctx context.Context, child, parent int64) error
	RemoveParent(ctx context.Context, child, parent int64) error
	GetTaxonym(ctx context.Context, id int64) (*models.Taxonym, error)
	LoadTaxonomy(ctx context.Context) ([]models.Taxonym, error)

	CreateTag(ctx context.Context, taxonym int64) (int64, error)
	DeleteTag(ctx context.Context, id int64) error
	GetTag(ctx context.Context, id int64) (*models.Tag, error)
	TagByTaxonym(ctx context.Context, taxonym int64) (int64, error)
	TagsForTaxonyms(ctx context.Context, taxonyms []int64) ([]models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	AddImplication(ctx context.Context, antecedent, consequent int64) error
	RemoveImplication(ctx context.Context, antecedent, consequent int64) error
	Implications(ctx context.Context) ([]models.Implication, error)
	ApplyTag(ctx context.Context, document, tag int64) error
	RemoveTag(ctx context.Context, document, tag int64) error
	DocumentTags(ctx context.Context, document int64) ([]int64, error)

	Execute(ctx context.Context, e query.Expr, raw bool) ([]int64, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)

// Verify *DB can feed the query compiler.
var _ query.TagSource = (*DB)(nil)

package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	retrievalx "github.com/tanpawarit/albaqer-concierge/agent/retrieval"
)

// PostgresCatalog reads the store schema through bun.
type PostgresCatalog struct {
	db bun.IDB
}

var _ Catalog = (*PostgresCatalog)(nil)

func NewPostgresCatalog(db bun.IDB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (s *PostgresCatalog) productQuery() *bun.SelectQuery {
	return s.db.NewSelect().
		TableExpr("products AS p").
		ColumnExpr("p.product_id, p.name, p.description, p.price_usd, p.gender, p.occasion").
		ColumnExpr("p.stock, p.is_sunnah_design, p.story_behind").
		ColumnExpr("c.name AS category, m.name AS material").
		ColumnExpr("array_remove(array_agg(DISTINCT s.name), NULL) AS stones").
		Join("LEFT JOIN categories AS c ON c.category_id = p.category_id").
		Join("LEFT JOIN materials AS m ON m.material_id = p.material_id").
		Join("LEFT JOIN product_stones AS ps ON ps.product_id = p.product_id").
		Join("LEFT JOIN stones AS s ON s.stone_id = ps.stone_id").
		GroupExpr("p.product_id, c.name, m.name")
}

func (s *PostgresCatalog) searchQuery(f ProductFilter) *bun.SelectQuery {
	q := s.productQuery()

	if text := strings.TrimSpace(f.Query); text != "" {
		like := containsPattern(text)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("p.name ILIKE ?", like).WhereOr("p.description ILIKE ?", like)
		})
	}
	if category := strings.TrimSpace(f.Category); category != "" {
		q = q.Where("c.name ILIKE ?", containsPattern(category))
	}
	if f.MinPrice != nil {
		q = q.Where("p.price_usd >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("p.price_usd <= ?", *f.MaxPrice)
	}
	if gender := strings.ToLower(strings.TrimSpace(f.Gender)); gender != "" {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("p.gender = ?", gender).WhereOr("p.gender = 'both'")
		})
	}
	if stone := strings.TrimSpace(f.StoneName); stone != "" {
		q = q.Having("bool_or(s.name ILIKE ?)", containsPattern(stone))
	}

	return q.OrderExpr("p.product_id ASC").Limit(f.limit())
}

func (s *PostgresCatalog) SearchProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	products := []Product{}
	if err := s.searchQuery(f).Scan(ctx, &products); err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

func (s *PostgresCatalog) Product(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := s.productQuery().Where("p.product_id = ?", id).Limit(1).Scan(ctx, &p)
	if err != nil {
		return Product{}, wrapLookup("product", err)
	}
	return p, nil
}

func (s *PostgresCatalog) ProductsByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	products := []Product{}
	if len(ids) == 0 {
		return products, nil
	}
	err := s.productQuery().
		Where("p.product_id IN (?)", bun.In(ids)).
		OrderExpr("p.product_id ASC").
		Scan(ctx, &products)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return products, nil
}

func (s *PostgresCatalog) Stone(ctx context.Context, name string) (Stone, error) {
	var st Stone
	pattern := containsPattern(strings.TrimSpace(name))
	err := s.db.NewSelect().
		TableExpr("stones AS s").
		ColumnExpr("s.stone_id, s.name, s.arabic_name, s.color, s.islamic_significance").
		ColumnExpr("s.cultural_significance, s.healing_properties, s.historical_facts").
		ColumnExpr("s.hardness, s.meaning, s.sunnah_stone, s.recommended_for").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("s.name ILIKE ?", pattern).WhereOr("s.arabic_name ILIKE ?", pattern)
		}).
		OrderExpr("length(s.name) ASC").
		Limit(1).
		Scan(ctx, &st)
	if err != nil {
		return Stone{}, wrapLookup("stone", err)
	}
	return st, nil
}

func (s *PostgresCatalog) DeliveryZone(ctx context.Context, governorate string) (DeliveryZone, error) {
	var zone DeliveryZone
	pattern := containsPattern(strings.TrimSpace(governorate))
	err := s.db.NewSelect().
		TableExpr("delivery_zones AS z").
		ColumnExpr("z.zone_name, z.governorate, z.delivery_fee_usd, z.delivery_days").
		ColumnExpr("z.security_level, z.currently_delivering").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("z.governorate ILIKE ?", pattern).WhereOr("z.zone_name ILIKE ?", pattern)
		}).
		Limit(1).
		Scan(ctx, &zone)
	if err != nil {
		return DeliveryZone{}, wrapLookup("delivery zone", err)
	}
	return zone, nil
}

func (s *PostgresCatalog) LatestRate(ctx context.Context, currency string) (CurrencyRate, error) {
	var rate CurrencyRate
	err := s.db.NewSelect().
		TableExpr("currency_rates AS r").
		ColumnExpr("r.currency_code, r.rate_to_usd, r.official_rate, r.source, r.created_at").
		Where("r.currency_code = ?", strings.ToUpper(strings.TrimSpace(currency))).
		OrderExpr("r.created_at DESC").
		Limit(1).
		Scan(ctx, &rate)
	if err != nil {
		return CurrencyRate{}, wrapLookup("currency rate", err)
	}
	return rate, nil
}

func (s *PostgresCatalog) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	methods := []PaymentMethod{}
	err := s.db.NewSelect().
		TableExpr("payment_methods AS pm").
		ColumnExpr("pm.method_name, pm.method_type, pm.fee_percentage, pm.instructions, pm.is_active").
		Where("pm.is_active = TRUE").
		OrderExpr("pm.method_name ASC").
		Scan(ctx, &methods)
	if err != nil {
		return nil, fmt.Errorf("load payment methods: %w", err)
	}
	return methods, nil
}

func (s *PostgresCatalog) ProductReviews(ctx context.Context, productID int64, limit int) ([]Review, error) {
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}
	reviews := []Review{}
	err := s.db.NewSelect().
		TableExpr("reviews AS r").
		ColumnExpr("r.product_id, r.rating, r.title, r.comment, r.created_at").
		ColumnExpr("u.full_name AS reviewer").
		Join("LEFT JOIN users AS u ON u.user_id = r.user_id").
		Where("r.product_id = ?", productID).
		OrderExpr("r.created_at DESC").
		Limit(limit).
		Scan(ctx, &reviews)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	return reviews, nil
}

type feedbackRow struct {
	bun.BaseModel `bun:"table:feedback,alias:f"`

	ID        int64     `bun:"feedback_id,pk,autoincrement"`
	SessionID string    `bun:"session_id"`
	Rating    int       `bun:"rating"`
	Comment   string    `bun:"comment"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (s *PostgresCatalog) SaveFeedback(ctx context.Context, fb Feedback) error {
	row := &feedbackRow{
		SessionID: fb.SessionID,
		Rating:    fb.Rating,
		Comment:   fb.Comment,
		CreatedAt: fb.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

type knowledgeRow struct {
	bun.BaseModel `bun:"table:knowledge_entries,alias:k"`

	ID               string            `bun:"id,pk"`
	Title            string            `bun:"title,notnull"`
	Body             string            `bun:"body,notnull"`
	Category         string            `bun:"category"`
	Embedding        []float64         `bun:"embedding,type:jsonb"`
	EmbeddingVersion string            `bun:"embedding_version"`
	Metadata         map[string]string `bun:"metadata,type:jsonb"`
	UpdatedAt        time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// KnowledgeTable stores the knowledge corpus. Embeddings are kept as JSON
// arrays and compared in process, so no vector extension is needed.
type KnowledgeTable struct {
	db bun.IDB
}

var (
	_ retrievalx.Corpus = (*KnowledgeTable)(nil)
	_ retrievalx.Sink   = (*KnowledgeTable)(nil)
)

func NewKnowledgeTable(db bun.IDB) *KnowledgeTable {
	return &KnowledgeTable{db: db}
}

func (t *KnowledgeTable) Entries(ctx context.Context) ([]retrievalx.KnowledgeEntry, error) {
	var rows []knowledgeRow
	if err := t.db.NewSelect().Model(&rows).OrderExpr("k.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load knowledge entries: %w", err)
	}
	entries := make([]retrievalx.KnowledgeEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, retrievalx.KnowledgeEntry{
			ID:               r.ID,
			Title:            r.Title,
			Body:             r.Body,
			Category:         r.Category,
			Embedding:        r.Embedding,
			EmbeddingVersion: r.EmbeddingVersion,
			Metadata:         r.Metadata,
		})
	}
	return entries, nil
}

func (t *KnowledgeTable) UpsertEntries(ctx context.Context, entries []retrievalx.KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]knowledgeRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, knowledgeRow{
			ID:               e.ID,
			Title:            e.Title,
			Body:             e.Body,
			Category:         e.Category,
			Embedding:        e.Embedding,
			EmbeddingVersion: e.EmbeddingVersion,
			Metadata:         e.Metadata,
			UpdatedAt:        now,
		})
	}

	_, err := t.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("body = EXCLUDED.body").
		Set("category = EXCLUDED.category").
		Set("embedding = EXCLUDED.embedding").
		Set("embedding_version = EXCLUDED.embedding_version").
		Set("metadata = EXCLUDED.metadata").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert knowledge entries: %w", err)
	}
	return nil
}

// CreateKnowledgeTable creates the corpus table when it is missing.
func CreateKnowledgeTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().Model((*knowledgeRow)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create knowledge table: %w", err)
	}
	return nil
}

func wrapLookup(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

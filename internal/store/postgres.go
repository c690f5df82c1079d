package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a lookup or delete by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrInvalidReference is returned when a write names a parent row that does
// not exist.
var ErrInvalidReference = errors.New("invalid reference")

const pgForeignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SeedAreas upserts the area catalog so foreign keys from folders and
// documents always resolve.
func (s *PostgresStore) SeedAreas(ctx context.Context, areas []Area) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed areas: %w", err)
	}
	for _, a := range areas {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO areas (id, slug, code, name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET slug=EXCLUDED.slug, code=EXCLUDED.code, name=EXCLUDED.name
		`, a.ID, a.Slug, a.Code, a.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("seed area %s: %w", a.Slug, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed areas: %w", err)
	}
	return nil
}

// Folders

const folderColumns = `id, name, color, category, description, folder_date, area_id, module_type, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (Folder, error) {
	var (
		item        Folder
		description sql.NullString
		date        sql.NullTime
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Color, &item.Category, &description, &date, &item.AreaID, &item.ModuleType, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Folder{}, err
	}
	item.Description = stringPtr(description)
	if date.Valid {
		d := date.Time
		item.Date = &d
	}
	return item, nil
}

func (s *PostgresStore) ListFolders(ctx context.Context, areaID, moduleType string) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+folderColumns+`
		FROM folders
		WHERE area_id=$1 AND module_type=$2
		ORDER BY created_at ASC, id ASC
	`, areaID, moduleType)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	items := make([]Folder, 0)
	for rows.Next() {
		item, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetFolder(ctx context.Context, folderID string) (Folder, error) {
	item, err := scanFolder(s.db.QueryRowContext(ctx, `SELECT `+folderColumns+` FROM folders WHERE id=$1`, folderID))
	if errors.Is(err, sql.ErrNoRows) {
		return Folder{}, ErrNotFound
	}
	if err != nil {
		return Folder{}, fmt.Errorf("get folder: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertFolder(ctx context.Context, item Folder) (Folder, error) {
	inserted, err := scanFolder(s.db.QueryRowContext(ctx, `
		INSERT INTO folders (id, name, color, category, description, folder_date, area_id, module_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+folderColumns,
		item.ID, item.Name, item.Color, item.Category, nullString(item.Description), nullTime(item.Date), item.AreaID, item.ModuleType))
	if err != nil {
		return Folder{}, fmt.Errorf("insert folder: %w", err)
	}
	return inserted, nil
}

// UpdateFolder always writes name and color; the optional fields are only
// written when the patch carries them.
func (s *PostgresStore) UpdateFolder(ctx context.Context, folderID string, patch FolderPatch) (Folder, error) {
	sets := []string{"name=$2", "color=$3", "updated_at=NOW()"}
	args := []any{folderID, patch.Name, patch.Color}
	if patch.Category != nil {
		args = append(args, *patch.Category)
		sets = append(sets, fmt.Sprintf("category=$%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, nullString(patch.Description))
		sets = append(sets, fmt.Sprintf("description=$%d", len(args)))
	}
	switch {
	case patch.ClearDate:
		sets = append(sets, "folder_date=NULL")
	case patch.Date != nil:
		args = append(args, nullTime(patch.Date))
		sets = append(sets, fmt.Sprintf("folder_date=$%d", len(args)))
	}

	query := `UPDATE folders SET ` + strings.Join(sets, ", ") + ` WHERE id=$1 RETURNING ` + folderColumns
	item, err := scanFolder(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Folder{}, ErrNotFound
	}
	if err != nil {
		return Folder{}, fmt.Errorf("update folder: %w", err)
	}
	return item, nil
}

// DeleteFolderCascade removes the folder's document rows and then the folder
// row in one transaction.
func (s *PostgresStore) DeleteFolderCascade(ctx context.Context, folderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete folder: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documentos WHERE folder_id=$1`, folderID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete folder documents: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id=$1`, folderID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete folder: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete folder rows: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete folder: %w", err)
	}
	return nil
}

// Documents

const documentColumns = `id, name, description, file_url, file_path, file_type, file_size, folder_id, area_id, module_type, created_at, updated_at`

func scanDocument(row rowScanner) (Document, error) {
	var (
		item        Document
		description sql.NullString
	)
	if err := row.Scan(&item.ID, &item.Name, &description, &item.FileURL, &item.FilePath, &item.FileType, &item.FileSize, &item.FolderID, &item.AreaID, &item.ModuleType, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Document{}, err
	}
	item.Description = stringPtr(description)
	return item, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error) {
	where := []string{"area_id=$1", "module_type=$2"}
	args := []any{filter.AreaID, filter.ModuleType}
	if filter.FolderID != "" {
		args = append(args, filter.FolderID)
		where = append(where, fmt.Sprintf("folder_id=$%d", len(args)))
	}
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM documentos
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, id ASC
	`, args...)
}

func (s *PostgresStore) ListFolderDocuments(ctx context.Context, folderID string) ([]Document, error) {
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM documentos
		WHERE folder_id=$1
		ORDER BY created_at ASC, id ASC
	`, folderID)
}

// ListAllDocuments feeds the search reindex at startup.
func (s *PostgresStore) ListAllDocuments(ctx context.Context) ([]Document, error) {
	return s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documentos ORDER BY created_at ASC, id ASC`)
}

// SearchDocuments matches names and descriptions case-insensitively.
func (s *PostgresStore) SearchDocuments(ctx context.Context, text string, filter DocumentFilter, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.TrimSpace(text)) + "%"
	where := []string{"(name ILIKE $1 OR COALESCE(description, '') ILIKE $1)"}
	args := []any{pattern}
	if filter.AreaID != "" {
		args = append(args, filter.AreaID)
		where = append(where, fmt.Sprintf("area_id=$%d", len(args)))
	}
	if filter.ModuleType != "" {
		args = append(args, filter.ModuleType)
		where = append(where, fmt.Sprintf("module_type=$%d", len(args)))
	}
	args = append(args, limit)
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM documentos
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY updated_at DESC
		LIMIT $`+fmt.Sprint(len(args)), args...)
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		item, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	item, err := scanDocument(s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documentos WHERE id=$1`, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) (Document, error) {
	inserted, err := scanDocument(s.db.QueryRowContext(ctx, `
		INSERT INTO documentos (id, name, description, file_url, file_path, file_type, file_size, folder_id, area_id, module_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+documentColumns,
		item.ID, item.Name, nullString(item.Description), item.FileURL, item.FilePath, item.FileType, item.FileSize, item.FolderID, item.AreaID, item.ModuleType))
	if isForeignKeyViolation(err) {
		return Document{}, fmt.Errorf("insert document: %w", ErrInvalidReference)
	}
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	return s.deleteByID(ctx, "documentos", documentID)
}

// Registros fotográficos

const registroColumns = `id, title, description, file_path, thumbnail_path, file_type, file_size, area_id, created_at`

func scanRegistro(row rowScanner) (Registro, error) {
	var (
		item        Registro
		description sql.NullString
		thumbnail   sql.NullString
	)
	if err := row.Scan(&item.ID, &item.Title, &description, &item.FilePath, &thumbnail, &item.FileType, &item.FileSize, &item.AreaID, &item.CreatedAt); err != nil {
		return Registro{}, err
	}
	item.Description = stringPtr(description)
	item.ThumbnailPath = stringPtr(thumbnail)
	return item, nil
}

func (s *PostgresStore) ListRegistros(ctx context.Context, areaID string) ([]Registro, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+registroColumns+`
		FROM registros_fotograficos
		WHERE area_id=$1
		ORDER BY created_at DESC
	`, areaID)
	if err != nil {
		return nil, fmt.Errorf("list registros: %w", err)
	}
	defer rows.Close()

	items := make([]Registro, 0)
	for rows.Next() {
		item, err := scanRegistro(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registro: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registros: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetRegistro(ctx context.Context, registroID string) (Registro, error) {
	item, err := scanRegistro(s.db.QueryRowContext(ctx, `SELECT `+registroColumns+` FROM registros_fotograficos WHERE id=$1`, registroID))
	if errors.Is(err, sql.ErrNoRows) {
		return Registro{}, ErrNotFound
	}
	if err != nil {
		return Registro{}, fmt.Errorf("get registro: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteRegistro(ctx context.Context, registroID string) error {
	return s.deleteByID(ctx, "registros_fotograficos", registroID)
}

// Informes de ejecución

const informeColumns = `id, title, description, period, file_path, file_type, file_size, area_id, created_at`

func scanInforme(row rowScanner) (Informe, error) {
	var (
		item        Informe
		description sql.NullString
		period      sql.NullString
	)
	if err := row.Scan(&item.ID, &item.Title, &description, &period, &item.FilePath, &item.FileType, &item.FileSize, &item.AreaID, &item.CreatedAt); err != nil {
		return Informe{}, err
	}
	item.Description = stringPtr(description)
	item.Period = stringPtr(period)
	return item, nil
}

func (s *PostgresStore) ListInformes(ctx context.Context, areaID string) ([]Informe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+informeColumns+`
		FROM informes_ejecucion
		WHERE area_id=$1
		ORDER BY created_at DESC
	`, areaID)
	if err != nil {
		return nil, fmt.Errorf("list informes: %w", err)
	}
	defer rows.Close()

	items := make([]Informe, 0)
	for rows.Next() {
		item, err := scanInforme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan informe: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate informes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetInforme(ctx context.Context, informeID string) (Informe, error) {
	item, err := scanInforme(s.db.QueryRowContext(ctx, `SELECT `+informeColumns+` FROM informes_ejecucion WHERE id=$1`, informeID))
	if errors.Is(err, sql.ErrNoRows) {
		return Informe{}, ErrNotFound
	}
	if err != nil {
		return Informe{}, fmt.Errorf("get informe: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteInforme(ctx context.Context, informeID string) error {
	return s.deleteByID(ctx, "informes_ejecucion", informeID)
}

// Lista de chequeo

func (s *PostgresStore) ListChecklistCategories(ctx context.Context) ([]ChecklistCategory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, sort_order FROM lista_chequeo_categorias ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list checklist categories: %w", err)
	}
	defer rows.Close()

	items := make([]ChecklistCategory, 0)
	for rows.Next() {
		var item ChecklistCategory
		if err := rows.Scan(&item.ID, &item.Name, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scan checklist category: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklist categories: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListChecklistStages(ctx context.Context) ([]ChecklistStage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, sort_order FROM lista_chequeo_etapas ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list checklist stages: %w", err)
	}
	defer rows.Close()

	items := make([]ChecklistStage, 0)
	for rows.Next() {
		var item ChecklistStage
		if err := rows.Scan(&item.ID, &item.Name, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scan checklist stage: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklist stages: %w", err)
	}
	return items, nil
}

// ListChecklistItems joins each item to its stage. categoryID 0 lists all
// categories.
func (s *PostgresStore) ListChecklistItems(ctx context.Context, categoryID int64) ([]ChecklistItem, error) {
	query := `
		SELECT i.id, i.category_id, i.stage_id, e.name, i.description, i.sort_order
		FROM lista_chequeo_items i
		JOIN lista_chequeo_etapas e ON e.id = i.stage_id
	`
	args := []any{}
	if categoryID > 0 {
		query += ` WHERE i.category_id=$1`
		args = append(args, categoryID)
	}
	query += ` ORDER BY e.sort_order ASC, i.sort_order ASC, i.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	defer rows.Close()

	items := make([]ChecklistItem, 0)
	for rows.Next() {
		var item ChecklistItem
		if err := rows.Scan(&item.ID, &item.CategoryID, &item.StageID, &item.StageName, &item.Description, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklist items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListChecklistAnswers(ctx context.Context, contractID string) ([]ChecklistAnswer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, item_id, answer, observations, updated_at
		FROM lista_chequeo_respuestas
		WHERE contract_id=$1
		ORDER BY item_id ASC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("list checklist answers: %w", err)
	}
	defer rows.Close()

	items := make([]ChecklistAnswer, 0)
	for rows.Next() {
		var item ChecklistAnswer
		if err := rows.Scan(&item.ID, &item.ContractID, &item.ItemID, &item.Answer, &item.Observations, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan checklist answer: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklist answers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpsertChecklistAnswer(ctx context.Context, answer ChecklistAnswer) (ChecklistAnswer, error) {
	var saved ChecklistAnswer
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO lista_chequeo_respuestas (id, contract_id, item_id, answer, observations)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contract_id, item_id) DO UPDATE
		SET answer=EXCLUDED.answer, observations=EXCLUDED.observations, updated_at=NOW()
		RETURNING id, contract_id, item_id, answer, observations, updated_at
	`, answer.ID, answer.ContractID, answer.ItemID, answer.Answer, answer.Observations).
		Scan(&saved.ID, &saved.ContractID, &saved.ItemID, &saved.Answer, &saved.Observations, &saved.UpdatedAt)
	if isForeignKeyViolation(err) {
		return ChecklistAnswer{}, fmt.Errorf("checklist item %d: %w", answer.ItemID, ErrInvalidReference)
	}
	if err != nil {
		return ChecklistAnswer{}, fmt.Errorf("upsert checklist answer: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s rows: %w", table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func nullString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return *value
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

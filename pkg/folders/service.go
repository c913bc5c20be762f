package folders

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/patentdesk/pkg/observability"
	"github.com/platinummonkey/patentdesk/pkg/storage/objectstore"
)

const maxParallelImports = 4

// PostgresService manages folders on Postgres and keeps imported originals in an object store
type PostgresService struct {
	db      *sql.DB
	objects objectstore.Store
	metrics *observability.Metrics
	now     func() time.Time
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB, objects objectstore.Store, metrics *observability.Metrics) *PostgresService {
	return &PostgresService{
		db:      db,
		objects: objects,
		metrics: metrics,
		now:     time.Now,
	}
}

// lockFolder locks a folder owned by userID and returns its legacy patent list
func lockFolder(ctx context.Context, tx *sql.Tx, userID, folderID string) ([]string, error) {
	var patentIDs []string
	err := tx.QueryRowContext(ctx,
		`SELECT patent_ids FROM patent_folders WHERE id = $1 AND user_id = $2 FOR UPDATE`, folderID, userID).
		Scan(pq.Array(&patentIDs))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFolderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock folder: %w", err)
	}
	return patentIDs, nil
}

// CreateFolder creates a folder, or a subfolder when ParentFolderID names a folder of the user
func (s *PostgresService) CreateFolder(ctx context.Context, userID string, req CreateFolderRequest) (*Folder, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidFolder)
	}
	if req.Source == "" {
		req.Source = SourceFolderName
	}
	if !req.Source.valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidFolder, req.Source)
	}
	patentIDs, invalid := normalizePatentIDs(req.PatentIDs)

	now := s.now()
	folder := &Folder{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           req.Name,
		ParentFolderID: req.ParentFolderID,
		PatentIDs:      []string{},
		Source:         req.Source,
		Workfiles:      []*Workfile{},
		Subfolders:     []*Folder{},
		CreatedAt:      now,
	}
	workfileName := strings.TrimSpace(req.WorkfileName)
	if workfileName == "" {
		folder.PatentIDs = patentIDs
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if req.ParentFolderID != nil {
		if _, err := lockFolder(ctx, tx, userID, *req.ParentFolderID); err != nil {
			return nil, err
		}
	}

	query := `
		INSERT INTO patent_folders (id, user_id, name, parent_folder_id, patent_ids, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, query, folder.ID, userID, folder.Name, folder.ParentFolderID,
		pq.Array(folder.PatentIDs), folder.Source, now); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	if workfileName != "" {
		workfile := &Workfile{
			ID:        uuid.NewString(),
			FolderID:  folder.ID,
			Name:      workfileName,
			PatentIDs: patentIDs,
			CreatedAt: now,
		}
		if err := insertWorkfile(ctx, tx, workfile); err != nil {
			return nil, err
		}
		folder.Workfiles = append(folder.Workfiles, workfile)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"folder_id": folder.ID,
		"patents":   len(patentIDs),
		"invalid":   len(invalid),
	}).Info("folder created")
	return folder, nil
}

func insertWorkfile(ctx context.Context, tx *sql.Tx, w *Workfile) error {
	query := `INSERT INTO patent_workfiles (id, folder_id, name, patent_ids, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, w.ID, w.FolderID, w.Name, pq.Array(w.PatentIDs), w.CreatedAt); err != nil {
		return fmt.Errorf("failed to create workfile: %w", err)
	}
	return nil
}

// ListFolders returns the user's top level folders with workfiles and nested subfolders
func (s *PostgresService) ListFolders(ctx context.Context, userID string) ([]*Folder, error) {
	query := `
		SELECT id, user_id, name, parent_folder_id, patent_ids, source, created_at
		FROM patent_folders
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var all []*Folder
	byID := make(map[string]*Folder)
	for rows.Next() {
		f := &Folder{Workfiles: []*Workfile{}, Subfolders: []*Folder{}}
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.ParentFolderID, pq.Array(&f.PatentIDs), &f.Source,
			&f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		if f.PatentIDs == nil {
			f.PatentIDs = []string{}
		}
		all = append(all, f)
		byID[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate folders: %w", err)
	}

	query = `
		SELECT w.id, w.folder_id, w.name, w.patent_ids, w.created_at
		FROM patent_workfiles w
		JOIN patent_folders f ON f.id = w.folder_id
		WHERE f.user_id = $1
		ORDER BY w.created_at ASC
	`
	wrows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workfiles: %w", err)
	}
	defer wrows.Close()

	for wrows.Next() {
		w := &Workfile{}
		if err := wrows.Scan(&w.ID, &w.FolderID, &w.Name, pq.Array(&w.PatentIDs), &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workfile: %w", err)
		}
		if w.PatentIDs == nil {
			w.PatentIDs = []string{}
		}
		if f, ok := byID[w.FolderID]; ok {
			f.Workfiles = append(f.Workfiles, w)
		}
	}
	if err := wrows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workfiles: %w", err)
	}

	roots := []*Folder{}
	for _, f := range all {
		if f.ParentFolderID != nil {
			if parent, ok := byID[*f.ParentFolderID]; ok {
				parent.Subfolders = append(parent.Subfolders, f)
				continue
			}
		}
		roots = append(roots, f)
	}
	return roots, nil
}

// AddPatents adds patent numbers to the named workfile, creating it if needed. Without a workfile
// name the numbers go to the folder's own list.
func (s *PostgresService) AddPatents(ctx context.Context, userID, folderID, workfileName string, patentIDs []string) (*ListUpdate, error) {
	valid, invalid := normalizePatentIDs(patentIDs)
	if len(valid) == 0 {
		return nil, ErrNoPatents
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	update, err := s.addPatents(ctx, tx, userID, folderID, strings.TrimSpace(workfileName), valid)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	update.Invalid = invalid
	return update, nil
}

// addPatents merges already normalized ids into a folder list or workfile
func (s *PostgresService) addPatents(ctx context.Context, tx *sql.Tx, userID, folderID, workfileName string, ids []string) (*ListUpdate, error) {
	legacy, err := lockFolder(ctx, tx, userID, folderID)
	if err != nil {
		return nil, err
	}

	if workfileName == "" {
		merged := unionPatentIDs(legacy, ids)
		_, err := tx.ExecContext(ctx, `UPDATE patent_folders SET patent_ids = $2 WHERE id = $1`, folderID, pq.Array(merged))
		if err != nil {
			return nil, fmt.Errorf("failed to update folder patents: %w", err)
		}
		return &ListUpdate{FolderID: folderID, PatentIDs: merged, Added: len(merged) - len(legacy)}, nil
	}

	var (
		workfileID string
		existing   []string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, patent_ids FROM patent_workfiles WHERE folder_id = $1 AND name = $2 FOR UPDATE`,
		folderID, workfileName).Scan(&workfileID, pq.Array(&existing))
	if errors.Is(err, sql.ErrNoRows) {
		w := &Workfile{
			ID:        uuid.NewString(),
			FolderID:  folderID,
			Name:      workfileName,
			PatentIDs: ids,
			CreatedAt: s.now(),
		}
		if err := insertWorkfile(ctx, tx, w); err != nil {
			return nil, err
		}
		return &ListUpdate{FolderID: folderID, WorkfileID: w.ID, PatentIDs: ids, Added: len(ids)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workfile: %w", err)
	}

	merged := unionPatentIDs(existing, ids)
	_, err = tx.ExecContext(ctx, `UPDATE patent_workfiles SET patent_ids = $2 WHERE id = $1`, workfileID, pq.Array(merged))
	if err != nil {
		return nil, fmt.Errorf("failed to update workfile patents: %w", err)
	}
	return &ListUpdate{FolderID: folderID, WorkfileID: workfileID, PatentIDs: merged, Added: len(merged) - len(existing)}, nil
}

// RemovePatent removes a patent number from one workfile, or from every list in the folder when
// workfileID is empty
func (s *PostgresService) RemovePatent(ctx context.Context, userID, folderID, workfileID, patentID string) error {
	std, err := StandardizePatentNumber(patentID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockFolder(ctx, tx, userID, folderID); err != nil {
		return err
	}

	if workfileID != "" {
		result, err := tx.ExecContext(ctx,
			`UPDATE patent_workfiles SET patent_ids = array_remove(patent_ids, $3) WHERE id = $1 AND folder_id = $2`,
			workfileID, folderID, std)
		if err != nil {
			return fmt.Errorf("failed to remove patent from workfile: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrWorkfileNotFound
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE patent_workfiles SET patent_ids = array_remove(patent_ids, $2) WHERE folder_id = $1`,
			folderID, std); err != nil {
			return fmt.Errorf("failed to remove patent from workfiles: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE patent_folders SET patent_ids = array_remove(patent_ids, $2) WHERE id = $1`,
			folderID, std); err != nil {
			return fmt.Errorf("failed to remove patent from folder: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MergeWorkfiles creates a workfile holding the union of the given workfiles, in the order the ids
// are listed. The source workfiles are kept.
func (s *PostgresService) MergeWorkfiles(ctx context.Context, userID, folderID string, workfileIDs []string, newName string) (*Workfile, error) {
	workfileIDs = unionPatentIDs(workfileIDs)
	if len(workfileIDs) < 2 {
		return nil, ErrInvalidMerge
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("%w: workfile name is required", ErrInvalidFolder)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockFolder(ctx, tx, userID, folderID); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, patent_ids FROM patent_workfiles WHERE folder_id = $1 AND id = ANY($2)`,
		folderID, pq.Array(workfileIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load workfiles: %w", err)
	}
	sources := make(map[string][]string, len(workfileIDs))
	for rows.Next() {
		var id string
		var ids []string
		if err := rows.Scan(&id, pq.Array(&ids)); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan workfile: %w", err)
		}
		sources[id] = ids
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workfiles: %w", err)
	}

	lists := make([][]string, 0, len(workfileIDs))
	for _, id := range workfileIDs {
		ids, ok := sources[id]
		if !ok {
			return nil, ErrInvalidMerge
		}
		lists = append(lists, ids)
	}

	merged := &Workfile{
		ID:        uuid.NewString(),
		FolderID:  folderID,
		Name:      newName,
		PatentIDs: unionPatentIDs(lists...),
		CreatedAt: s.now(),
	}
	if err := insertWorkfile(ctx, tx, merged); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return merged, nil
}

// DeleteFolder deletes a folder with its subfolders and workfiles
func (s *PostgresService) DeleteFolder(ctx context.Context, userID, folderID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM patent_folders WHERE id = $1 AND user_id = $2`, folderID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// DeleteWorkfile deletes one workfile of a folder owned by the user
func (s *PostgresService) DeleteWorkfile(ctx context.Context, userID, folderID, workfileID string) error {
	query := `
		DELETE FROM patent_workfiles w
		USING patent_folders f
		WHERE w.id = $1 AND w.folder_id = $2 AND f.id = w.folder_id AND f.user_id = $3
	`
	result, err := s.db.ExecContext(ctx, query, workfileID, folderID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete workfile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrWorkfileNotFound
	}
	return nil
}

// SavePatent bookmarks a patent. Saving it again updates the title.
func (s *PostgresService) SavePatent(ctx context.Context, userID, patentID, title string) (*SavedPatent, error) {
	std, err := StandardizePatentNumber(patentID)
	if err != nil {
		return nil, err
	}
	saved := &SavedPatent{UserID: userID, PatentID: std, Title: strings.TrimSpace(title)}
	query := `
		INSERT INTO saved_patents (id, user_id, patent_id, title)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, patent_id) DO UPDATE SET title = EXCLUDED.title
		RETURNING id, created_at
	`
	err = s.db.QueryRowContext(ctx, query, uuid.NewString(), userID, std, saved.Title).Scan(&saved.ID, &saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save patent: %w", err)
	}
	return saved, nil
}

// importedUpload is one upload after extraction
type importedUpload struct {
	upload    Upload
	format    Format
	patentIDs []string
	objectKey string
	stored    bool
}

// objectKey names the stored original: imports/<user>/<uuid>-<slug>.<ext>
func objectKey(userID, fileName string, format Format) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	name := slug.Make(base)
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("imports/%s/%s-%s.%s", userID, uuid.NewString(), name, format)
}

// ImportFiles extracts patent numbers from the uploads, stores the originals and adds the numbers to
// workfileName, or to a workfile named after each file when workfileName is empty. Extraction and
// storage run concurrently across uploads.
func (s *PostgresService) ImportFiles(ctx context.Context, userID, folderID, workfileName string, uploads []Upload) (result *ImportResult, err error) {
	ctx, span := observability.StartSpan(ctx, "folders.ImportFiles",
		attribute.String("folder.id", folderID),
		attribute.Int("upload.count", len(uploads)),
	)
	defer func() { observability.EndSpan(span, err) }()
	return s.importFiles(ctx, userID, folderID, workfileName, uploads)
}

func (s *PostgresService) importFiles(ctx context.Context, userID, folderID, workfileName string, uploads []Upload) (*ImportResult, error) {
	if len(uploads) == 0 {
		return nil, ErrNoPatents
	}
	items := make([]*importedUpload, len(uploads))
	for i, u := range uploads {
		format, err := DetectFormat(u.FileName)
		if err != nil {
			return nil, err
		}
		items[i] = &importedUpload{upload: u, format: format, objectKey: objectKey(userID, u.FileName, format)}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelImports)
	for _, item := range items {
		item := item
		eg.Go(func() error {
			ids, err := ExtractPatentIDs(item.upload.FileName, bytes.NewReader(item.upload.Data))
			if err != nil {
				return fmt.Errorf("%s: %w", item.upload.FileName, err)
			}
			item.patentIDs = ids
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, item := range items {
		total += len(item.patentIDs)
	}
	if total == 0 {
		return nil, ErrNoPatents
	}

	eg, egCtx = errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelImports)
	for _, item := range items {
		item := item
		eg.Go(func() error {
			if err := s.objects.Put(egCtx, item.objectKey, item.upload.Data, contentTypes[item.format]); err != nil {
				return err
			}
			item.stored = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		s.discardUploads(ctx, items)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	result, err := s.recordImports(ctx, userID, folderID, strings.TrimSpace(workfileName), items)
	if err != nil {
		s.discardUploads(ctx, items)
		return nil, err
	}

	for _, item := range items {
		s.metrics.RecordImport(string(item.format), len(item.patentIDs))
	}
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"folder_id": folderID,
		"files":     len(items),
		"patents":   total,
	}).Info("patent lists imported")
	return result, nil
}

// discardUploads deletes the originals already stored for an import that did not complete
func (s *PostgresService) discardUploads(ctx context.Context, items []*importedUpload) {
	for _, item := range items {
		if !item.stored {
			continue
		}
		if err := s.objects.Delete(ctx, item.objectKey); err != nil {
			observability.FromContext(ctx).WithError(err).WithField("object_key", item.objectKey).
				Warn("failed to delete orphaned upload")
		}
	}
}

func (s *PostgresService) recordImports(ctx context.Context, userID, folderID, workfileName string, items []*importedUpload) (*ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &ImportResult{Files: []*ImportedFile{}, Updates: []*ListUpdate{}}
	for _, item := range items {
		target := workfileName
		if target == "" {
			target = strings.TrimSuffix(filepath.Base(item.upload.FileName), filepath.Ext(item.upload.FileName))
		}
		if len(item.patentIDs) > 0 {
			update, err := s.addPatents(ctx, tx, userID, folderID, target, item.patentIDs)
			if err != nil {
				return nil, err
			}
			result.Updates = append(result.Updates, update)
		}

		file := &ImportedFile{
			ID:          uuid.NewString(),
			UserID:      userID,
			FolderID:    folderID,
			ObjectKey:   item.objectKey,
			FileName:    item.upload.FileName,
			Format:      item.format,
			PatentCount: len(item.patentIDs),
		}
		query := `
			INSERT INTO imported_files (id, user_id, folder_id, object_key, file_name, format, patent_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`
		err := tx.QueryRowContext(ctx, query, file.ID, userID, folderID, file.ObjectKey, file.FileName, file.Format,
			file.PatentCount).Scan(&file.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to record imported file: %w", err)
		}
		result.Files = append(result.Files, file)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

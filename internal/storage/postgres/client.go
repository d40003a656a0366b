// internal/storage/postgres/client.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/annolab/annolab/internal/config"
	"github.com/annolab/annolab/internal/models"
	"github.com/lib/pq"
)

type Client struct {
	db *sql.DB
}

func NewClient(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

const taskColumns = `id, project_id, project_manager, name, content, timer,
		annotator, reviewer, ai, status, submitted, time_taken, feedback,
		created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t                       models.Task
		annotator, reviewer, ai sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.ProjectManager,
		&t.Name,
		&t.Content,
		&t.Timer,
		&annotator,
		&reviewer,
		&ai,
		&t.Status,
		&t.Submitted,
		&t.TimeTaken,
		&t.Feedback,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if annotator.Valid {
		t.Annotator = &annotator.String
	}
	if reviewer.Valid {
		t.Reviewer = &reviewer.String
	}
	if ai.Valid {
		t.AI = &ai.String
	}

	return &t, nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// Task lifecycle

func (c *Client) CreateTasks(ctx context.Context, tasks []*models.Task) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tasks
		(id, project_id, project_manager, name, content, timer, annotator,
		 reviewer, ai, status, submitted, time_taken, feedback, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	for _, t := range tasks {
		_, err := tx.ExecContext(ctx, query,
			t.ID,
			t.ProjectID,
			t.ProjectManager,
			t.Name,
			t.Content,
			t.Timer,
			nullable(t.Annotator),
			nullable(t.Reviewer),
			nullable(t.AI),
			t.Status,
			t.Submitted,
			t.TimeTaken,
			t.Feedback,
			t.CreatedAt,
			t.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert task %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (c *Client) SubmitTask(ctx context.Context, id, content string, timeTaken int) (*models.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET content = $1, time_taken = $2, submitted = TRUE, updated_at = NOW()
		WHERE id = $3
		RETURNING %s`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, content, timeTaken, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (c *Client) SetTaskStatus(ctx context.Context, id string, status models.Status) (*models.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET status = $1, feedback = '', updated_at = NOW()
		WHERE id = $2
		RETURNING %s`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, status, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (c *Client) ReassignTask(ctx context.Context, id string, annotator *string) (*models.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET submitted = FALSE, status = $1, time_taken = 0, feedback = '',
			annotator = $2, ai = NULL, updated_at = NOW()
		WHERE id = $3
		RETURNING %s`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, models.StatusReassigned, nullable(annotator), id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// RejectTask applies the rejection reset and writes the rework audit record
// in a single transaction, so no rejection can land without its audit entry.
func (c *Client) RejectTask(ctx context.Context, id, feedback, reviewerID string) (*models.Task, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE tasks
		SET submitted = FALSE, status = $1, time_taken = 0, feedback = $2,
			ai = NULL, updated_at = NOW()
		WHERE id = $3
		RETURNING %s`, taskColumns)

	task, err := scanTask(tx.QueryRowContext(ctx, query, models.StatusRejected, feedback, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rework := models.NewReworkRecord(task, reviewerID)

	insert := `
		INSERT INTO reworks
		(id, task_id, task_name, project_id, project_manager, annotator,
		 reviewer, feedback, task_created_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.ExecContext(ctx, insert,
		rework.ID,
		rework.TaskID,
		rework.TaskName,
		rework.ProjectID,
		rework.ProjectManager,
		nullable(rework.Annotator),
		rework.Reviewer,
		rework.Feedback,
		rework.TaskCreatedAt,
		rework.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rework record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return task, nil
}

// DeleteTask removes the task's automated-job records before the task row,
// preventing orphaned job records. Deleting a missing task is a no-op.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ai_jobs WHERE task_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete ai jobs: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return tx.Commit()
}

// Assignment

func (c *Client) AssignAI(ctx context.Context, id, agentID string) (*models.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET ai = $1, annotator = NULL, updated_at = NOW()
		WHERE id = $2
		RETURNING %s`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, agentID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// AssignAnnotator sets the annotator with the exclusivity rule re-stated in
// the WHERE clause: the update only lands while the reviewer differs from
// the assignee. Zero rows means the guard failed (or the task vanished).
func (c *Client) AssignAnnotator(ctx context.Context, id, annotatorID string) (*models.Task, bool, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET annotator = $1, ai = NULL, updated_at = NOW()
		WHERE id = $2 AND (reviewer IS NULL OR reviewer <> $1)
		RETURNING %s`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, annotatorID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return task, true, nil
}

func (c *Client) UnassignAnnotator(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET annotator = NULL, ai = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (c *Client) AssignReviewer(ctx context.Context, id, reviewerID string) (*models.Task, bool, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET reviewer = $1, updated_at = NOW()
		WHERE id = $2 AND (annotator IS NULL OR annotator <> $1)
		RETURNING %s`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, reviewerID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return task, true, nil
}

func (c *Client) UnassignReviewer(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET reviewer = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// SetReviewer is the unguarded manager variant; it always clears the
// automated-agent assignment.
func (c *Client) SetReviewer(ctx context.Context, id string, reviewerID *string) (*models.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET reviewer = $1, ai = NULL, updated_at = NOW()
		WHERE id = $2
		RETURNING %s`, taskColumns)

	task, err := scanTask(c.db.QueryRowContext(ctx, query, nullable(reviewerID), id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// Queries

func (c *Client) ListTasks(ctx context.Context, projectID string, filter models.TaskFilter, limit, offset int) ([]*models.Task, int64, error) {
	where := `project_id = $1`
	switch filter {
	case models.FilterSubmitted:
		where += ` AND submitted = TRUE`
	case models.FilterUnassigned:
		where += ` AND annotator IS NULL`
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tasks WHERE %s`, where)
	if err := c.db.QueryRowContext(ctx, countQuery, projectID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, taskColumns, where)

	rows, err := c.db.QueryContext(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}

	return tasks, total, rows.Err()
}

func (c *Client) ListReviewQueue(ctx context.Context, reviewerID string) ([]*models.ReviewTask, error) {
	query := fmt.Sprintf(`
		SELECT %s, p.name, COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		LEFT JOIN users u ON u.id = t.annotator
		WHERE t.reviewer = $1
		  AND t.status IN ($2, $3, $4, $5)
		ORDER BY t.submitted DESC, t.status ASC, t.created_at DESC`,
		prefixedTaskColumns("t"))

	rows, err := c.db.QueryContext(ctx, query, reviewerID,
		models.StatusPending, models.StatusAccepted, models.StatusRejected, models.StatusReassigned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.ReviewTask
	for rows.Next() {
		var (
			rt                      models.ReviewTask
			annotator, reviewer, ai sql.NullString
		)
		err := rows.Scan(
			&rt.ID,
			&rt.ProjectID,
			&rt.ProjectManager,
			&rt.Name,
			&rt.Content,
			&rt.Timer,
			&annotator,
			&reviewer,
			&ai,
			&rt.Status,
			&rt.Submitted,
			&rt.TimeTaken,
			&rt.Feedback,
			&rt.CreatedAt,
			&rt.UpdatedAt,
			&rt.ProjectName,
			&rt.AnnotatorName,
			&rt.AnnotatorEmail,
		)
		if err != nil {
			return nil, err
		}
		if annotator.Valid {
			rt.Annotator = &annotator.String
		}
		if reviewer.Valid {
			rt.Reviewer = &reviewer.String
		}
		if ai.Valid {
			rt.AI = &ai.String
		}
		result = append(result, &rt)
	}

	return result, rows.Err()
}

func (c *Client) DistinctProjectsByAnnotator(ctx context.Context, annotatorID string) ([]*models.Project, error) {
	return c.distinctProjects(ctx, "annotator", annotatorID)
}

func (c *Client) DistinctProjectsByReviewer(ctx context.Context, reviewerID string) ([]*models.Project, error) {
	return c.distinctProjects(ctx, "reviewer", reviewerID)
}

func (c *Client) distinctProjects(ctx context.Context, field, userID string) ([]*models.Project, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT p.id, p.name
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.%s = $1`, field)

	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}

	return projects, rows.Err()
}

// Rework ledger

func (c *Client) ListReworks(ctx context.Context, taskID string) ([]*models.ReworkRecord, error) {
	query := `
		SELECT id, task_id, task_name, project_id, project_manager, annotator,
			reviewer, feedback, task_created_at, created_at
		FROM reworks
		WHERE task_id = $1
		ORDER BY created_at DESC`

	rows, err := c.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ReworkRecord
	for rows.Next() {
		var (
			r         models.ReworkRecord
			annotator sql.NullString
		)
		err := rows.Scan(
			&r.ID,
			&r.TaskID,
			&r.TaskName,
			&r.ProjectID,
			&r.ProjectManager,
			&annotator,
			&r.Reviewer,
			&r.Feedback,
			&r.TaskCreatedAt,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if annotator.Valid {
			r.Annotator = &annotator.String
		}
		records = append(records, &r)
	}

	return records, rows.Err()
}

// Onboarding seeds

func (c *Client) CreateRepeatTasks(ctx context.Context, seeds []*models.TaskRepeat) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO task_repeats
		(id, project_id, project_manager, name, content, timer, reviewer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, s := range seeds {
		_, err := tx.ExecContext(ctx, query,
			s.ID,
			s.ProjectID,
			s.ProjectManager,
			s.Name,
			s.Content,
			s.Timer,
			nullable(s.Reviewer),
			s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert repeat task %s: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

func (c *Client) ListRepeatTasks(ctx context.Context) ([]*models.TaskRepeat, error) {
	query := `
		SELECT id, project_id, project_manager, name, content, timer, reviewer, created_at
		FROM task_repeats
		ORDER BY created_at`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seeds []*models.TaskRepeat
	for rows.Next() {
		var (
			s        models.TaskRepeat
			reviewer sql.NullString
		)
		err := rows.Scan(
			&s.ID,
			&s.ProjectID,
			&s.ProjectManager,
			&s.Name,
			&s.Content,
			&s.Timer,
			&reviewer,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if reviewer.Valid {
			s.Reviewer = &reviewer.String
		}
		seeds = append(seeds, &s)
	}

	return seeds, rows.Err()
}

// External collaborator reads: identity store and template store.

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, email FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

func (c *Client) ListTemplates(ctx context.Context, projectID string) ([]*models.NotificationTemplate, error) {
	query := `
		SELECT id, project_id, trigger_name, active, trigger_body
		FROM notification_templates
		WHERE project_id = $1`

	rows, err := c.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.NotificationTemplate
	for rows.Next() {
		var t models.NotificationTemplate
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.TriggerName, &t.Active, &t.TriggerBody); err != nil {
			return nil, err
		}
		templates = append(templates, &t)
	}

	return templates, rows.Err()
}

func prefixedTaskColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.project_id, %[1]s.project_manager, %[1]s.name,
		%[1]s.content, %[1]s.timer, %[1]s.annotator, %[1]s.reviewer, %[1]s.ai,
		%[1]s.status, %[1]s.submitted, %[1]s.time_taken, %[1]s.feedback,
		%[1]s.created_at, %[1]s.updated_at`, alias)
}

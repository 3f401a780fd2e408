package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/qturkey/listmailer/internal/model"
)

const jobColumns = `id, status, scheduled_to, template_id, address_start_index, started_at, finished_at`

func scanJob(row pgx.Row) (model.Job, error) {
	var (
		j      model.Job
		status string
	)
	err := row.Scan(&j.ID, &status, &j.ScheduledTo, &j.TemplateID, &j.AddressStartIndex, &j.StartedAt, &j.FinishedAt)
	j.Status = model.JobStatus(status)
	return j, err
}

// CreateJob inserts a pending job and sets its ID.
func (s *Store) CreateJob(ctx context.Context, j *model.Job) error {
	if j.Status == "" {
		j.Status = model.JobPending
	}
	j.ScheduledTo = model.Minute(j.ScheduledTo)
	err := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO jobs (status, scheduled_to, template_id, address_start_index)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		string(j.Status), j.ScheduledTo, j.TemplateID, j.AddressStartIndex,
	).Scan(&j.ID)
	return mapErr(err)
}

// ClaimDueJob moves the oldest pending job with scheduled_to <= now to
// started and returns it. It returns nil when no job is due.
// The select and the update are one statement, so the claim commits atomically.
func (s *Store) ClaimDueJob(ctx context.Context, now time.Time) (*model.Job, error) {
	now = model.Minute(now)
	job, err := scanJob(s.conn(ctx).QueryRow(ctx, `
		UPDATE jobs
		SET status = 'started', started_at = $1
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'pending' AND scheduled_to <= $1
			ORDER BY scheduled_to, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FinishJob moves a started job to finished.
func (s *Store) FinishJob(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE jobs
		SET status = 'finished', finished_at = $2
		WHERE id = $1 AND status = 'started'`, id, model.Minute(at))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetJob loads a job by id.
func (s *Store) GetJob(ctx context.Context, id int64) (model.Job, error) {
	j, err := scanJob(s.conn(ctx).QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	return j, mapErr(err)
}

// ListJobs returns the most recent jobs with their delivery counts, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]model.JobStats, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT j.id, j.status, j.scheduled_to, j.template_id, j.address_start_index, j.started_at, j.finished_at,
			COUNT(m.id) FILTER (WHERE m.success),
			COUNT(m.id) FILTER (WHERE NOT m.success)
		FROM jobs j
		LEFT JOIN sent_mails m ON m.job_id = j.id
		GROUP BY j.id
		ORDER BY j.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.JobStats, error) {
		var (
			st     model.JobStats
			status string
		)
		err := row.Scan(&st.Job.ID, &status, &st.Job.ScheduledTo, &st.Job.TemplateID,
			&st.Job.AddressStartIndex, &st.Job.StartedAt, &st.Job.FinishedAt, &st.Sent, &st.Failed)
		st.Job.Status = model.JobStatus(status)
		return st, err
	})
}

// CountStuckJobs counts jobs still started since before cutoff. Nothing
// reclaims such a job; it is surfaced for operators only.
func (s *Store) CountStuckJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM jobs
		WHERE status = 'started' AND started_at < $1`, cutoff,
	).Scan(&n)
	return n, err
}

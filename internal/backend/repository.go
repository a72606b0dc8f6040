package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/learnlens/internal/domain"
	"github.com/felixgeelhaar/learnlens/internal/record"
)

// Default table names in the backend project
const (
	CourseTable   = "course"
	ProgressTable = "progress"
)

// fetchLimit bounds a single fetch window
const fetchLimit = 500

// CourseRepository reads courses from the backend
type CourseRepository struct {
	client *Client
	table  string
}

var _ domain.CourseRepository = (*CourseRepository)(nil)

// NewCourseRepository creates a repository over table (default CourseTable)
func NewCourseRepository(client *Client, table string) *CourseRepository {
	if table == "" {
		table = CourseTable
	}
	return &CourseRepository{client: client, table: table}
}

// List returns every published course
func (r *CourseRepository) List(ctx context.Context) ([]*domain.Course, error) {
	records, err := r.client.FetchRecords(ctx, r.table, Query{PagingInfo: &Paging{Limit: fetchLimit}})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return record.DecodeCourses(records)
}

// Get returns one course or a course NotFoundError
func (r *CourseRepository) Get(ctx context.Context, id string) (*domain.Course, error) {
	rec, err := r.client.GetRecordByID(ctx, r.table, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, domain.CourseNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get course %s: %w", id, err)
	}
	return record.DecodeCourse(rec)
}

// ProgressRepository stores progress records in the backend
type ProgressRepository struct {
	client *Client
	table  string
}

var _ domain.ProgressRepository = (*ProgressRepository)(nil)

// NewProgressRepository creates a repository over table (default ProgressTable)
func NewProgressRepository(client *Client, table string) *ProgressRepository {
	if table == "" {
		table = ProgressTable
	}
	return &ProgressRepository{client: client, table: table}
}

// Get returns the user's progress for a course
func (r *ProgressRepository) Get(ctx context.Context, userID, courseID string) (*domain.Progress, error) {
	records, err := r.client.FetchRecords(ctx, r.table, Query{
		Where: []Condition{
			EqualTo("courseId", record.LookupValue(courseID)),
			EqualTo("userId", userID),
		},
		PagingInfo: &Paging{Limit: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ProgressNotFound(userID, courseID)
	}
	return record.DecodeProgress(records[0])
}

// ListByUser returns every progress record owned by userID
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Progress, error) {
	records, err := r.client.FetchRecords(ctx, r.table, Query{
		Where:      []Condition{EqualTo("userId", userID)},
		PagingInfo: &Paging{Limit: fetchLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return record.DecodeProgressList(records)
}

// Save creates the record on first write and updates it afterwards. After a
// create, p.ID holds the identifier assigned by the backend.
func (r *ProgressRepository) Save(ctx context.Context, p *domain.Progress) error {
	rec, err := record.EncodeProgress(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	if _, exists := rec["Id"]; exists {
		if _, err := r.client.UpdateRecord(ctx, r.table, rec); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		return nil
	}

	created, err := r.client.CreateRecord(ctx, r.table, rec)
	if err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	if id, err := created.ID(); err == nil {
		p.ID = id
	}
	return nil
}

// Delete removes the user's progress for a course
func (r *ProgressRepository) Delete(ctx context.Context, userID, courseID string) error {
	p, err := r.Get(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if err := r.client.DeleteRecords(ctx, r.table, p.ID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
)

// kindTables maps content kinds onto their tables. All kind-keyed
// operations (approval, moderation hide, meta lookups) route through it.
var kindTables = map[content.Kind]string{
	content.KindLesson:        "lesson",
	content.KindTest:          "test",
	content.KindResource:      "resource",
	content.KindForumThread:   "forum_thread",
	content.KindForumPost:     "forum_post",
	content.KindAnnouncement:  "announcement",
	content.KindChatMessage:   "chat_message",
	content.KindLessonComment: "lesson_comment",
}

// metaTitleExpr yields a displayable title for kinds that have none of
// their own; posts and chat messages are labeled by an excerpt.
func metaTitleExpr(kind content.Kind) string {
	switch kind {
	case content.KindForumPost, content.KindLessonComment:
		return "left(content, 80)"
	case content.KindChatMessage:
		return "left(message, 80)"
	default:
		return "title"
	}
}

type metaRow struct {
	ID        int               `db:"id"`
	Title     string            `db:"title"`
	AuthorID  int               `db:"author_id"`
	Lifecycle content.Lifecycle `db:"lifecycle"`
	CreatedAt time.Time         `db:"created_at"`
}

func (r metaRow) toMeta() content.Meta {
	return content.Meta{
		ID:        r.ID,
		Title:     r.Title,
		AuthorID:  r.AuthorID,
		Lifecycle: r.Lifecycle,
		CreatedAt: r.CreatedAt,
	}
}

type contentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *sqlx.DB) content.Repository {
	return &contentRepository{db: db}
}

// kind-keyed operations

func (repo *contentRepository) GetMeta(ctx context.Context, kind content.Kind, id int) (content.Meta, error) {
	table, ok := kindTables[kind]
	if !ok {
		return content.Meta{}, content.ErrNotFound
	}
	q := fmt.Sprintf(
		`SELECT id, %s AS title, author_id, lifecycle, created_at FROM %s WHERE id = $1`,
		metaTitleExpr(kind), table,
	)
	var row metaRow
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return content.Meta{}, content.ErrNotFound
		}
		return content.Meta{}, errors.Wrapf(err, "getting %s meta", kind)
	}
	return row.toMeta(), nil
}

func (repo *contentRepository) SetLifecycle(ctx context.Context, kind content.Kind, id int, lc content.Lifecycle) error {
	table, ok := kindTables[kind]
	if !ok {
		return content.ErrNotFound
	}
	q := fmt.Sprintf(`UPDATE %s SET lifecycle = $2 WHERE id = $1`, table)
	res, err := repo.db.ExecContext(ctx, q, id, lc)
	if err != nil {
		return errors.Wrapf(err, "setting %s lifecycle", kind)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (repo *contentRepository) DeleteItem(ctx context.Context, kind content.Kind, id int) error {
	table, ok := kindTables[kind]
	if !ok {
		return content.ErrNotFound
	}
	// questions, posts etc. go with their parent via ON DELETE CASCADE
	res, err := repo.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", kind)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (repo *contentRepository) QueryPending(ctx context.Context, kind content.Kind) ([]content.Meta, error) {
	table, ok := kindTables[kind]
	if !ok {
		return nil, content.ErrNotFound
	}
	q := fmt.Sprintf(
		`SELECT id, %s AS title, author_id, lifecycle, created_at FROM %s WHERE lifecycle = $1 ORDER BY created_at`,
		metaTitleExpr(kind), table,
	)
	var rows []metaRow
	if err := repo.db.SelectContext(ctx, &rows, q, content.LifecyclePending); err != nil {
		return nil, errors.Wrapf(err, "querying pending %s items", kind)
	}
	metas := make([]content.Meta, 0, len(rows))
	for _, r := range rows {
		metas = append(metas, r.toMeta())
	}
	return metas, nil
}

func (repo *contentRepository) QueryPendingByAuthor(ctx context.Context, authorID int) ([]content.PendingItem, error) {
	var items []content.PendingItem
	for _, kind := range content.AllKinds {
		if !kind.Approvable() {
			continue
		}
		q := fmt.Sprintf(
			`SELECT id, title, author_id, lifecycle, created_at FROM %s WHERE lifecycle = $1 AND author_id = $2 ORDER BY created_at`,
			kindTables[kind],
		)
		var rows []metaRow
		if err := repo.db.SelectContext(ctx, &rows, q, content.LifecyclePending, authorID); err != nil {
			return nil, errors.Wrapf(err, "querying author's pending %s items", kind)
		}
		for _, r := range rows {
			items = append(items, content.PendingItem{Kind: kind, Meta: r.toMeta()})
		}
	}
	return items, nil
}

// lessons

type lessonRow struct {
	metaRow
	Content string `db:"content"`
	Year    int    `db:"year"`
	Stream  string `db:"stream"`
	Subject string `db:"subject"`
}

func (r lessonRow) toLesson() content.Lesson {
	return content.Lesson{
		Meta:    r.toMeta(),
		Content: r.Content,
		Year:    r.Year,
		Stream:  r.Stream,
		Subject: r.Subject,
	}
}

func (repo *contentRepository) CreateLesson(ctx context.Context, lsn content.Lesson) (content.Lesson, error) {
	q := `
		INSERT INTO lesson (title, author_id, lifecycle, content, year, stream, subject, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		lsn.Title, lsn.AuthorID, lsn.Lifecycle, lsn.Content, lsn.Year, lsn.Stream, lsn.Subject, lsn.CreatedAt,
	).Scan(&lsn.ID)
	if err != nil {
		return content.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lsn, nil
}

func (repo *contentRepository) GetLesson(ctx context.Context, id int) (content.Lesson, error) {
	var row lessonRow
	q := `SELECT id, title, author_id, lifecycle, created_at, content, year, stream, subject FROM lesson WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return content.Lesson{}, content.ErrNotFound
		}
		return content.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return row.toLesson(), nil
}

func (repo *contentRepository) QueryLessons(ctx context.Context, filter content.Filter) ([]content.Lesson, error) {
	q := `SELECT id, title, author_id, lifecycle, created_at, content, year, stream, subject FROM lesson WHERE lifecycle = $1`
	args := []interface{}{content.LifecycleActive}
	q, args = applyContentFilter(q, args, filter)
	q += ` ORDER BY created_at DESC`

	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]content.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.toLesson())
	}
	return lessons, nil
}

// resources

type resourceRow struct {
	metaRow
	Type    content.ResourceType `db:"type"`
	URL     string               `db:"url"`
	Year    int                  `db:"year"`
	Stream  string               `db:"stream"`
	Subject string               `db:"subject"`
}

func (r resourceRow) toResource() content.Resource {
	return content.Resource{
		Meta:    r.toMeta(),
		Type:    r.Type,
		URL:     r.URL,
		Year:    r.Year,
		Stream:  r.Stream,
		Subject: r.Subject,
	}
}

func (repo *contentRepository) CreateResource(ctx context.Context, res content.Resource) (content.Resource, error) {
	q := `
		INSERT INTO resource (title, author_id, lifecycle, type, url, year, stream, subject, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		res.Title, res.AuthorID, res.Lifecycle, res.Type, res.URL, res.Year, res.Stream, res.Subject, res.CreatedAt,
	).Scan(&res.ID)
	if err != nil {
		return content.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return res, nil
}

func (repo *contentRepository) GetResource(ctx context.Context, id int) (content.Resource, error) {
	var row resourceRow
	q := `SELECT id, title, author_id, lifecycle, created_at, type, url, year, stream, subject FROM resource WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return content.Resource{}, content.ErrNotFound
		}
		return content.Resource{}, errors.Wrap(err, "getting resource")
	}
	return row.toResource(), nil
}

func (repo *contentRepository) QueryResources(ctx context.Context, filter content.Filter) ([]content.Resource, error) {
	q := `SELECT id, title, author_id, lifecycle, created_at, type, url, year, stream, subject FROM resource WHERE lifecycle = $1`
	args := []interface{}{content.LifecycleActive}
	q, args = applyContentFilter(q, args, filter)
	q += ` ORDER BY created_at DESC`

	var rows []resourceRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	resources := make([]content.Resource, 0, len(rows))
	for _, r := range rows {
		resources = append(resources, r.toResource())
	}
	return resources, nil
}

// announcements

type announcementRow struct {
	metaRow
	Content string `db:"content"`
}

func (repo *contentRepository) CreateAnnouncement(ctx context.Context, ann content.Announcement) (content.Announcement, error) {
	q := `
		INSERT INTO announcement (title, author_id, lifecycle, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		ann.Title, ann.AuthorID, ann.Lifecycle, ann.Content, ann.CreatedAt,
	).Scan(&ann.ID)
	if err != nil {
		return content.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return ann, nil
}

func (repo *contentRepository) QueryAnnouncements(ctx context.Context) ([]content.Announcement, error) {
	q := `SELECT id, title, author_id, lifecycle, created_at, content FROM announcement WHERE lifecycle = $1 ORDER BY created_at DESC`
	var rows []announcementRow
	if err := repo.db.SelectContext(ctx, &rows, q, content.LifecycleActive); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	anns := make([]content.Announcement, 0, len(rows))
	for _, r := range rows {
		anns = append(anns, content.Announcement{Meta: r.toMeta(), Content: r.Content})
	}
	return anns, nil
}

// forum

type forumThreadRow struct {
	metaRow
	Category content.ThreadCategory `db:"category"`
	Subject  string                 `db:"subject"`
	Year     int                    `db:"year"`
	Stream   string                 `db:"stream"`
}

func (r forumThreadRow) toThread() content.ForumThread {
	return content.ForumThread{
		Meta:     r.toMeta(),
		Category: r.Category,
		Subject:  r.Subject,
		Year:     r.Year,
		Stream:   r.Stream,
	}
}

type forumPostRow struct {
	ID        int               `db:"id"`
	ThreadID  int               `db:"thread_id"`
	AuthorID  int               `db:"author_id"`
	Content   string            `db:"content"`
	Lifecycle content.Lifecycle `db:"lifecycle"`
	CreatedAt time.Time         `db:"created_at"`
}

func (r forumPostRow) toPost() content.ForumPost {
	return content.ForumPost{
		ID:        r.ID,
		ThreadID:  r.ThreadID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		Lifecycle: r.Lifecycle,
		CreatedAt: r.CreatedAt,
	}
}

func (repo *contentRepository) CreateForumThread(ctx context.Context, thr content.ForumThread, opening content.ForumPost) (content.ForumThread, error) {
	err := core.AtomicTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `
			INSERT INTO forum_thread (title, author_id, lifecycle, category, subject, year, stream, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`
		err := tx.QueryRowContext(ctx, q,
			thr.Title, thr.AuthorID, thr.Lifecycle, thr.Category, thr.Subject, thr.Year, thr.Stream, thr.CreatedAt,
		).Scan(&thr.ID)
		if err != nil {
			return errors.Wrap(err, "inserting forum thread")
		}

		q = `
			INSERT INTO forum_post (thread_id, author_id, content, lifecycle, created_at)
			VALUES ($1, $2, $3, $4, $5)`
		_, err = tx.ExecContext(ctx, q, thr.ID, opening.AuthorID, opening.Content, opening.Lifecycle, opening.CreatedAt)
		return errors.Wrap(err, "inserting opening post")
	})
	if err != nil {
		return content.ForumThread{}, err
	}
	return thr, nil
}

func (repo *contentRepository) GetForumThread(ctx context.Context, id int) (content.ForumThread, error) {
	var row forumThreadRow
	q := `SELECT id, title, author_id, lifecycle, created_at, category, subject, year, stream FROM forum_thread WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return content.ForumThread{}, content.ErrNotFound
		}
		return content.ForumThread{}, errors.Wrap(err, "getting forum thread")
	}
	return row.toThread(), nil
}

func (repo *contentRepository) QueryForumThreads(ctx context.Context, subject string, filter content.Filter) ([]content.ForumThread, error) {
	q := `SELECT id, title, author_id, lifecycle, created_at, category, subject, year, stream FROM forum_thread WHERE lifecycle = $1`
	args := []interface{}{content.LifecycleActive}
	if subject != "" {
		args = append(args, subject)
		q += fmt.Sprintf(` AND subject = $%d`, len(args))
	}
	q, args = applyContentFilter(q, args, content.Filter{Year: filter.Year, Stream: filter.Stream})
	q += ` ORDER BY created_at DESC`

	var rows []forumThreadRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying forum threads")
	}
	threads := make([]content.ForumThread, 0, len(rows))
	for _, r := range rows {
		threads = append(threads, r.toThread())
	}
	return threads, nil
}

func (repo *contentRepository) CreateForumPost(ctx context.Context, post content.ForumPost) (content.ForumPost, error) {
	q := `
		INSERT INTO forum_post (thread_id, author_id, content, lifecycle, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		post.ThreadID, post.AuthorID, post.Content, post.Lifecycle, post.CreatedAt,
	).Scan(&post.ID)
	if err != nil {
		return content.ForumPost{}, errors.Wrap(err, "inserting forum post")
	}
	return post, nil
}

func (repo *contentRepository) QueryForumPosts(ctx context.Context, threadID int) ([]content.ForumPost, error) {
	q := `
		SELECT id, thread_id, author_id, content, lifecycle, created_at
		FROM forum_post
		WHERE thread_id = $1 AND lifecycle = $2
		ORDER BY created_at`
	var rows []forumPostRow
	if err := repo.db.SelectContext(ctx, &rows, q, threadID, content.LifecycleActive); err != nil {
		return nil, errors.Wrap(err, "querying forum posts")
	}
	posts := make([]content.ForumPost, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.toPost())
	}
	return posts, nil
}

type lessonCommentRow struct {
	ID        int               `db:"id"`
	LessonID  int               `db:"lesson_id"`
	AuthorID  int               `db:"author_id"`
	Content   string            `db:"content"`
	Lifecycle content.Lifecycle `db:"lifecycle"`
	CreatedAt time.Time         `db:"created_at"`
}

func (r lessonCommentRow) toComment() content.LessonComment {
	return content.LessonComment{
		ID:        r.ID,
		LessonID:  r.LessonID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		Lifecycle: r.Lifecycle,
		CreatedAt: r.CreatedAt,
	}
}

func (repo *contentRepository) CreateLessonComment(ctx context.Context, cmt content.LessonComment) (content.LessonComment, error) {
	q := `
		INSERT INTO lesson_comment (lesson_id, author_id, content, lifecycle, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		cmt.LessonID, cmt.AuthorID, cmt.Content, cmt.Lifecycle, cmt.CreatedAt,
	).Scan(&cmt.ID)
	if err != nil {
		return content.LessonComment{}, errors.Wrap(err, "inserting lesson comment")
	}
	return cmt, nil
}

func (repo *contentRepository) QueryLessonComments(ctx context.Context, lessonID int) ([]content.LessonComment, error) {
	q := `
		SELECT id, lesson_id, author_id, content, lifecycle, created_at
		FROM lesson_comment
		WHERE lesson_id = $1 AND lifecycle = $2
		ORDER BY created_at`
	var rows []lessonCommentRow
	if err := repo.db.SelectContext(ctx, &rows, q, lessonID, content.LifecycleActive); err != nil {
		return nil, errors.Wrap(err, "querying lesson comments")
	}
	comments := make([]content.LessonComment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, r.toComment())
	}
	return comments, nil
}

// applyContentFilter appends the year/stream/subject conditions; zero
// values are ignored.
func applyContentFilter(q string, args []interface{}, filter content.Filter) (string, []interface{}) {
	if filter.Year != 0 {
		args = append(args, filter.Year)
		q += fmt.Sprintf(` AND year = $%d`, len(args))
	}
	if filter.Stream != "" {
		args = append(args, filter.Stream)
		q += fmt.Sprintf(` AND stream = $%d`, len(args))
	}
	if filter.Subject != "" {
		args = append(args, filter.Subject)
		q += fmt.Sprintf(` AND subject = $%d`, len(args))
	}
	return q, args
}

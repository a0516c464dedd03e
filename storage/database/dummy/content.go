package dummydb

import (
	"context"
	"sort"

	"github.com/elimusoft/elimu/core/content"
)

type contentRepository struct {
	db *DB
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *DB) content.Repository {
	return &contentRepository{db: db}
}

// excerpt mirrors the title derivation for kinds that have none of their own.
func excerpt(s string) string {
	if len(s) > 80 {
		return s[:80]
	}
	return s
}

// kind-keyed operations

func (repo *contentRepository) GetMeta(ctx context.Context, kind content.Kind, id int) (content.Meta, error) {
	if kind == content.KindTest {
		repo.db.quiz.RLock()
		defer repo.db.quiz.RUnlock()
		if tst, ok := repo.db.quiz.tests[id]; ok {
			return tst.Meta, nil
		}
		return content.Meta{}, content.ErrNotFound
	}

	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	switch kind {
	case content.KindLesson:
		if lsn, ok := repo.db.content.lessons[id]; ok {
			return lsn.Meta, nil
		}
	case content.KindResource:
		if res, ok := repo.db.content.resources[id]; ok {
			return res.Meta, nil
		}
	case content.KindAnnouncement:
		if ann, ok := repo.db.content.announcements[id]; ok {
			return ann.Meta, nil
		}
	case content.KindForumThread:
		if thr, ok := repo.db.content.forumThreads[id]; ok {
			return thr.Meta, nil
		}
	case content.KindForumPost:
		if post, ok := repo.db.content.forumPosts[id]; ok {
			return content.Meta{
				ID:        post.ID,
				Title:     excerpt(post.Content),
				AuthorID:  post.AuthorID,
				Lifecycle: post.Lifecycle,
				CreatedAt: post.CreatedAt,
			}, nil
		}
	case content.KindChatMessage:
		if msg, ok := repo.db.content.chatMessages[id]; ok {
			return content.Meta{
				ID:        msg.ID,
				Title:     excerpt(msg.Message),
				AuthorID:  msg.AuthorID,
				Lifecycle: msg.Lifecycle,
				CreatedAt: msg.CreatedAt,
			}, nil
		}
	case content.KindLessonComment:
		if cmt, ok := repo.db.content.comments[id]; ok {
			return content.Meta{
				ID:        cmt.ID,
				Title:     excerpt(cmt.Content),
				AuthorID:  cmt.AuthorID,
				Lifecycle: cmt.Lifecycle,
				CreatedAt: cmt.CreatedAt,
			}, nil
		}
	}
	return content.Meta{}, content.ErrNotFound
}

func (repo *contentRepository) SetLifecycle(ctx context.Context, kind content.Kind, id int, lc content.Lifecycle) error {
	if kind == content.KindTest {
		repo.db.quiz.Lock()
		defer repo.db.quiz.Unlock()
		if tst, ok := repo.db.quiz.tests[id]; ok {
			tst.Lifecycle = lc
			return nil
		}
		return content.ErrNotFound
	}

	repo.db.content.Lock()
	defer repo.db.content.Unlock()

	switch kind {
	case content.KindLesson:
		if lsn, ok := repo.db.content.lessons[id]; ok {
			lsn.Lifecycle = lc
			return nil
		}
	case content.KindResource:
		if res, ok := repo.db.content.resources[id]; ok {
			res.Lifecycle = lc
			return nil
		}
	case content.KindAnnouncement:
		if ann, ok := repo.db.content.announcements[id]; ok {
			ann.Lifecycle = lc
			return nil
		}
	case content.KindForumThread:
		if thr, ok := repo.db.content.forumThreads[id]; ok {
			thr.Lifecycle = lc
			return nil
		}
	case content.KindForumPost:
		if post, ok := repo.db.content.forumPosts[id]; ok {
			post.Lifecycle = lc
			return nil
		}
	case content.KindChatMessage:
		if msg, ok := repo.db.content.chatMessages[id]; ok {
			msg.Lifecycle = lc
			return nil
		}
	case content.KindLessonComment:
		if cmt, ok := repo.db.content.comments[id]; ok {
			cmt.Lifecycle = lc
			return nil
		}
	}
	return content.ErrNotFound
}

func (repo *contentRepository) DeleteItem(ctx context.Context, kind content.Kind, id int) error {
	if kind == content.KindTest {
		repo.db.quiz.Lock()
		defer repo.db.quiz.Unlock()
		if _, ok := repo.db.quiz.tests[id]; !ok {
			return content.ErrNotFound
		}
		delete(repo.db.quiz.tests, id)
		for qid, qst := range repo.db.quiz.qsts {
			if qst.TestID == id {
				delete(repo.db.quiz.qsts, qid)
			}
		}
		return nil
	}

	repo.db.content.Lock()
	defer repo.db.content.Unlock()

	switch kind {
	case content.KindLesson:
		if _, ok := repo.db.content.lessons[id]; ok {
			delete(repo.db.content.lessons, id)
			for cid, cmt := range repo.db.content.comments {
				if cmt.LessonID == id {
					delete(repo.db.content.comments, cid)
				}
			}
			return nil
		}
	case content.KindResource:
		if _, ok := repo.db.content.resources[id]; ok {
			delete(repo.db.content.resources, id)
			return nil
		}
	case content.KindAnnouncement:
		if _, ok := repo.db.content.announcements[id]; ok {
			delete(repo.db.content.announcements, id)
			return nil
		}
	case content.KindForumThread:
		if _, ok := repo.db.content.forumThreads[id]; ok {
			delete(repo.db.content.forumThreads, id)
			for pid, post := range repo.db.content.forumPosts {
				if post.ThreadID == id {
					delete(repo.db.content.forumPosts, pid)
				}
			}
			return nil
		}
	case content.KindForumPost:
		if _, ok := repo.db.content.forumPosts[id]; ok {
			delete(repo.db.content.forumPosts, id)
			return nil
		}
	case content.KindChatMessage:
		if _, ok := repo.db.content.chatMessages[id]; ok {
			delete(repo.db.content.chatMessages, id)
			return nil
		}
	case content.KindLessonComment:
		if _, ok := repo.db.content.comments[id]; ok {
			delete(repo.db.content.comments, id)
			return nil
		}
	}
	return content.ErrNotFound
}

func (repo *contentRepository) QueryPending(ctx context.Context, kind content.Kind) ([]content.Meta, error) {
	var metas []content.Meta
	switch kind {
	case content.KindTest:
		repo.db.quiz.RLock()
		defer repo.db.quiz.RUnlock()
		for _, tst := range repo.db.quiz.tests {
			if tst.Lifecycle == content.LifecyclePending {
				metas = append(metas, tst.Meta)
			}
		}
	case content.KindLesson:
		repo.db.content.RLock()
		defer repo.db.content.RUnlock()
		for _, lsn := range repo.db.content.lessons {
			if lsn.Lifecycle == content.LifecyclePending {
				metas = append(metas, lsn.Meta)
			}
		}
	case content.KindResource:
		repo.db.content.RLock()
		defer repo.db.content.RUnlock()
		for _, res := range repo.db.content.resources {
			if res.Lifecycle == content.LifecyclePending {
				metas = append(metas, res.Meta)
			}
		}
	default:
		return nil, nil
	}
	sortMetas(metas)
	return metas, nil
}

func (repo *contentRepository) QueryPendingByAuthor(ctx context.Context, authorID int) ([]content.PendingItem, error) {
	var items []content.PendingItem
	for _, kind := range content.AllKinds {
		if !kind.Approvable() {
			continue
		}
		metas, err := repo.QueryPending(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, m := range metas {
			if m.AuthorID == authorID {
				items = append(items, content.PendingItem{Kind: kind, Meta: m})
			}
		}
	}
	return items, nil
}

// lessons

func (repo *contentRepository) CreateLesson(ctx context.Context, lsn content.Lesson) (content.Lesson, error) {
	repo.db.content.Lock()
	defer repo.db.content.Unlock()

	repo.db.content.seq++
	lsn.ID = repo.db.content.seq
	repo.db.content.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *contentRepository) GetLesson(ctx context.Context, id int) (content.Lesson, error) {
	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	if lsn, ok := repo.db.content.lessons[id]; ok {
		return *lsn, nil
	}
	return content.Lesson{}, content.ErrNotFound
}

func (repo *contentRepository) QueryLessons(ctx context.Context, filter content.Filter) ([]content.Lesson, error) {
	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	var lessons []content.Lesson
	for _, lsn := range repo.db.content.lessons {
		if lsn.Visible() && matchesFilter(filter, lsn.Year, lsn.Stream, lsn.Subject) {
			lessons = append(lessons, *lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
	return lessons, nil
}

// resources

func (repo *contentRepository) CreateResource(ctx context.Context, res content.Resource) (content.Resource, error) {
	repo.db.content.Lock()
	defer repo.db.content.Unlock()

	repo.db.content.seq++
	res.ID = repo.db.content.seq
	repo.db.content.resources[res.ID] = &res
	return res, nil
}

func (repo *contentRepository) GetResource(ctx context.Context, id int) (content.Resource, error) {
	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	if res, ok := repo.db.content.resources[id]; ok {
		return *res, nil
	}
	return content.Resource{}, content.ErrNotFound
}

func (repo *contentRepository) QueryResources(ctx context.Context, filter content.Filter) ([]content.Resource, error) {
	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	var resources []content.Resource
	for _, res := range repo.db.content.resources {
		if res.Visible() && matchesFilter(filter, res.Year, res.Stream, res.Subject) {
			resources = append(resources, *res)
		}
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].ID < resources[j].ID })
	return resources, nil
}

// announcements

func (repo *contentRepository) CreateAnnouncement(ctx context.Context, ann content.Announcement) (content.Announcement, error) {
	repo.db.content.Lock()
	defer repo.db.content.Unlock()

	repo.db.content.seq++
	ann.ID = repo.db.content.seq
	repo.db.content.announcements[ann.ID] = &ann
	return ann, nil
}

func (repo *contentRepository) QueryAnnouncements(ctx context.Context) ([]content.Announcement, error) {
	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	var anns []content.Announcement
	for _, ann := range repo.db.content.announcements {
		if ann.Visible() {
			anns = append(anns, *ann)
		}
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].ID > anns[j].ID }) // newest first
	return anns, nil
}

// forum

func (repo *contentRepository) CreateForumThread(ctx context.Context, thr content.ForumThread, opening content.ForumPost) (content.ForumThread, error) {
	repo.db.content.Lock()
	defer repo.db.content.Unlock()

	repo.db.content.seq++
	thr.ID = repo.db.content.seq
	repo.db.content.forumThreads[thr.ID] = &thr

	repo.db.content.seq++
	opening.ID = repo.db.content.seq
	opening.ThreadID = thr.ID
	repo.db.content.forumPosts[opening.ID] = &opening
	return thr, nil
}

func (repo *contentRepository) GetForumThread(ctx context.Context, id int) (content.ForumThread, error) {
	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	if thr, ok := repo.db.content.forumThreads[id]; ok {
		return *thr, nil
	}
	return content.ForumThread{}, content.ErrNotFound
}

func (repo *contentRepository) QueryForumThreads(ctx context.Context, subject string, filter content.Filter) ([]content.ForumThread, error) {
	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	var threads []content.ForumThread
	for _, thr := range repo.db.content.forumThreads {
		if !thr.Visible() {
			continue
		}
		if subject != "" && thr.Subject != subject {
			continue
		}
		if !matchesFilter(filter, thr.Year, thr.Stream, "") {
			continue
		}
		threads = append(threads, *thr)
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i].ID > threads[j].ID }) // newest first
	return threads, nil
}

func (repo *contentRepository) CreateForumPost(ctx context.Context, post content.ForumPost) (content.ForumPost, error) {
	repo.db.content.Lock()
	defer repo.db.content.Unlock()

	repo.db.content.seq++
	post.ID = repo.db.content.seq
	repo.db.content.forumPosts[post.ID] = &post
	return post, nil
}

func (repo *contentRepository) QueryForumPosts(ctx context.Context, threadID int) ([]content.ForumPost, error) {
	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	var posts []content.ForumPost
	for _, post := range repo.db.content.forumPosts {
		if post.ThreadID == threadID && post.Lifecycle == content.LifecycleActive {
			posts = append(posts, *post)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (repo *contentRepository) CreateLessonComment(ctx context.Context, cmt content.LessonComment) (content.LessonComment, error) {
	repo.db.content.Lock()
	defer repo.db.content.Unlock()

	repo.db.content.seq++
	cmt.ID = repo.db.content.seq
	repo.db.content.comments[cmt.ID] = &cmt
	return cmt, nil
}

func (repo *contentRepository) QueryLessonComments(ctx context.Context, lessonID int) ([]content.LessonComment, error) {
	repo.db.content.RLock()
	defer repo.db.content.RUnlock()

	var comments []content.LessonComment
	for _, cmt := range repo.db.content.comments {
		if cmt.LessonID == lessonID && cmt.Lifecycle == content.LifecycleActive {
			comments = append(comments, *cmt)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func matchesFilter(filter content.Filter, year int, stream, subject string) bool {
	if filter.Year != 0 && filter.Year != year {
		return false
	}
	if filter.Stream != "" && filter.Stream != stream {
		return false
	}
	if filter.Subject != "" && filter.Subject != subject {
		return false
	}
	return true
}

func sortMetas(metas []content.Meta) {
	sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })
}

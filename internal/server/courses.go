package server

import (
	"context"
	"errors"
	"slices"
	"time"
)

var errNotEnrolled = errors.New("not enrolled in course")

type Lesson struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Type     string `json:"type"`
}

type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Level       string   `json:"level"`
	Duration    int      `json:"duration"`
	Rating      float64  `json:"rating"`
	Enrolled    int      `json:"enrolled"`
	Thumbnail   string   `json:"thumbnail"`
	Category    string   `json:"category"`
	Instructor  string   `json:"instructor"`
	Lessons     []Lesson `json:"-"`
}

var standardLessons = []Lesson{
	{ID: "1", Title: "مقدمة عن لعبة الشطرنج", Duration: 15, Type: "video"},
	{ID: "2", Title: "تعلم حركات القطع", Duration: 20, Type: "interactive"},
	{ID: "3", Title: "قواعد اللعب الأساسية", Duration: 18, Type: "video"},
	{ID: "4", Title: "تمارين على الحركات", Duration: 25, Type: "quiz"},
	{ID: "5", Title: "الكش والكش مات", Duration: 22, Type: "video"},
}

var courseCatalog = []Course{
	{
		ID:          "intro-basics",
		Title:       "أساسيات الشطرنج للمبتدئين",
		Description: "تعلم قواعد الشطرنج الأساسية وحركات القطع",
		Level:       "مبتدئ",
		Duration:    120,
		Rating:      4.8,
		Enrolled:    1234,
		Thumbnail:   "photo-1581090464777-f3220bbe1b8b",
		Category:    "مقدمة",
		Instructor:  "أستاذ محمد أحمد",
		Lessons:     standardLessons,
	},
	{
		ID:          "openings-guide",
		Title:       "دليل الافتتاحيات الكلاسيكية",
		Description: "تعلم أهم الافتتاحيات وأساسياتها",
		Level:       "متوسط",
		Duration:    180,
		Rating:      4.7,
		Enrolled:    856,
		Thumbnail:   "photo-1473091534298-04dcbce3278c",
		Category:    "افتتاحيات",
		Instructor:  "أستاذة سارة محمود",
		Lessons:     standardLessons,
	},
	{
		ID:          "tactics-mastery",
		Title:       "إتقان التكتيكات المتقدمة",
		Description: "تحسين قدراتك التكتيكية بتمارين متدرجة",
		Level:       "متقدم",
		Duration:    240,
		Rating:      4.9,
		Enrolled:    642,
		Thumbnail:   "photo-1582562124811-c09040d0a901",
		Category:    "تكتيكات",
		Instructor:  "أستاذ أحمد علي",
		Lessons:     standardLessons,
	},
	{
		ID:          "endgame-theory",
		Title:       "نظريات النهايات الأساسية",
		Description: "فهم النهايات المهمة وتقنيات الفوز",
		Level:       "متوسط",
		Duration:    160,
		Rating:      4.6,
		Enrolled:    723,
		Thumbnail:   "photo-1441057206919-63d19fac2369",
		Category:    "النهايات",
		Instructor:  "أستاذ خالد حسن",
		Lessons:     standardLessons,
	},
}

type CourseResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Level       string  `json:"level"`
	Duration    int     `json:"duration"`
	Lessons     int     `json:"lessons"`
	Rating      float64 `json:"rating"`
	Enrolled    int     `json:"enrolled"`
	Thumbnail   string  `json:"thumbnail"`
	Category    string  `json:"category"`
	Instructor  string  `json:"instructor"`
	IsEnrolled  bool    `json:"isEnrolled"`
	Progress    int     `json:"progress"`
}

type LessonResponse struct {
	Lesson
	Completed bool `json:"completed"`
}

type CourseDetailResponse struct {
	CourseResponse
	LessonList []LessonResponse `json:"lessonList"`
}

type LessonStartResponse struct {
	CourseID string `json:"courseId"`
	LessonID string `json:"lessonId"`
	Progress int    `json:"progress"`
}

// Courses answers catalog reads against per-user enrollments.
type Courses struct {
	store   Store
	catalog []Course
}

func NewCourses(store Store) *Courses {
	return &Courses{store: store, catalog: courseCatalog}
}

func (c *Courses) find(id string) (Course, bool) {
	for _, co := range c.catalog {
		if co.ID == id {
			return co, true
		}
	}
	return Course{}, false
}

func progressOf(co Course, e Enrollment) int {
	if len(co.Lessons) == 0 {
		return 0
	}
	done := 0
	for _, l := range co.Lessons {
		if slices.Contains(e.CompletedLessons, l.ID) {
			done++
		}
	}
	return done * 100 / len(co.Lessons)
}

func courseView(co Course, e *Enrollment) CourseResponse {
	resp := CourseResponse{
		ID:          co.ID,
		Title:       co.Title,
		Description: co.Description,
		Level:       co.Level,
		Duration:    co.Duration,
		Lessons:     len(co.Lessons),
		Rating:      co.Rating,
		Enrolled:    co.Enrolled,
		Thumbnail:   co.Thumbnail,
		Category:    co.Category,
		Instructor:  co.Instructor,
	}
	if e != nil {
		resp.IsEnrolled = true
		resp.Progress = progressOf(co, *e)
	}
	return resp
}

// List returns the catalog filtered by category; "" and "all" mean every course.
func (c *Courses) List(ctx context.Context, userID, category string) ([]CourseResponse, error) {
	enrolled, err := c.store.ListEnrollments(ctx, userID)
	if err != nil {
		return nil, err
	}
	byCourse := make(map[string]Enrollment, len(enrolled))
	for _, e := range enrolled {
		byCourse[e.CourseID] = e
	}

	out := []CourseResponse{}
	for _, co := range c.catalog {
		if category != "" && category != "all" && co.Category != category {
			continue
		}
		var ep *Enrollment
		if e, ok := byCourse[co.ID]; ok {
			ep = &e
		}
		out = append(out, courseView(co, ep))
	}
	return out, nil
}

func (c *Courses) enrollment(ctx context.Context, userID, courseID string) (*Enrollment, error) {
	e, err := c.store.Enrollment(ctx, userID, courseID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Courses) Detail(ctx context.Context, userID, courseID string) (CourseDetailResponse, error) {
	co, ok := c.find(courseID)
	if !ok {
		return CourseDetailResponse{}, ErrNotFound
	}
	e, err := c.enrollment(ctx, userID, courseID)
	if err != nil {
		return CourseDetailResponse{}, err
	}

	resp := CourseDetailResponse{CourseResponse: courseView(co, e)}
	for _, l := range co.Lessons {
		resp.LessonList = append(resp.LessonList, LessonResponse{
			Lesson:    l,
			Completed: e != nil && slices.Contains(e.CompletedLessons, l.ID),
		})
	}
	return resp, nil
}

// Enroll is idempotent; an existing enrollment keeps its progress.
func (c *Courses) Enroll(ctx context.Context, userID, courseID string) (CourseResponse, error) {
	co, ok := c.find(courseID)
	if !ok {
		return CourseResponse{}, ErrNotFound
	}
	e, err := c.enrollment(ctx, userID, courseID)
	if err != nil {
		return CourseResponse{}, err
	}
	if e == nil {
		e = &Enrollment{
			UserID:           userID,
			CourseID:         courseID,
			CompletedLessons: []string{},
			EnrolledAt:       time.Now().UTC(),
		}
		if err := c.store.PutEnrollment(ctx, *e); err != nil {
			return CourseResponse{}, err
		}
	}
	return courseView(co, e), nil
}

// StartLesson marks the lesson completed for an enrolled user.
func (c *Courses) StartLesson(ctx context.Context, userID, courseID, lessonID string) (LessonStartResponse, error) {
	co, ok := c.find(courseID)
	if !ok {
		return LessonStartResponse{}, ErrNotFound
	}
	if !slices.ContainsFunc(co.Lessons, func(l Lesson) bool { return l.ID == lessonID }) {
		return LessonStartResponse{}, ErrNotFound
	}
	e, err := c.enrollment(ctx, userID, courseID)
	if err != nil {
		return LessonStartResponse{}, err
	}
	if e == nil {
		return LessonStartResponse{}, errNotEnrolled
	}
	if !slices.Contains(e.CompletedLessons, lessonID) {
		e.CompletedLessons = append(e.CompletedLessons, lessonID)
		if err := c.store.PutEnrollment(ctx, *e); err != nil {
			return LessonStartResponse{}, err
		}
	}
	return LessonStartResponse{
		CourseID: courseID,
		LessonID: lessonID,
		Progress: progressOf(co, *e),
	}, nil
}

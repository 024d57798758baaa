package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func writeCourseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "course or lesson not found")
	case errors.Is(err, errNotEnrolled):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func handleListCourses(courses *Courses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := courses.List(r.Context(), userFrom(r).ID, r.URL.Query().Get("category"))
		if err != nil {
			writeCourseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGetCourse(courses *Courses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := courses.Detail(r.Context(), userFrom(r).ID, chi.URLParam(r, "courseID"))
		if err != nil {
			writeCourseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func handleEnrollCourse(courses *Courses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := courses.Enroll(r.Context(), userFrom(r).ID, chi.URLParam(r, "courseID"))
		if err != nil {
			writeCourseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleStartLesson(courses *Courses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := courses.StartLesson(r.Context(), userFrom(r).ID,
			chi.URLParam(r, "courseID"), chi.URLParam(r, "lessonID"))
		if err != nil {
			writeCourseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

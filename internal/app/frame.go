package app

import (
	"lessonplay/internal/catalog"
	"lessonplay/internal/session"
	"lessonplay/internal/ui"
)

func toUIFrame(course catalog.Course, lesson catalog.Lesson, sf session.Frame, theme string) ui.Frame {
	f := ui.Frame{
		CourseTitle: course.Title,
		LessonID:    sf.LessonID,
		LessonTitle: sf.Title,
		ContentMD:   lesson.Content.Markdown(),
		Time:        sf.Playback.CurrentTime,
		Duration:    sf.Playback.Duration,
		Playing:     sf.Playback.IsPlaying,
		Rate:        sf.Playback.Rate,
		Volume:      sf.Playback.Volume,
		Degraded:    sf.Degraded,
		Overall:     sf.Overall,
		Theme:       theme,
	}
	for _, p := range sf.ActivePrompts {
		f.Prompts = append(f.Prompts, ui.PromptCard{
			ID:       string(p.ID),
			Question: p.Question,
			Options:  p.Options,
		})
	}
	for _, c := range sf.ActiveComponents {
		f.Components = append(f.Components, ui.ComponentPanel{
			ID:          string(c.ID),
			Name:        c.Name,
			Description: c.Description,
			At:          c.At,
			End:         c.End,
		})
	}
	if r := sf.LastResult; r != nil {
		f.Result = &ui.ResultCard{Correct: r.Correct, Feedback: r.Feedback, Explanation: r.Explanation}
	}

	titles := make(map[string]string, len(sf.Lessons))
	for _, l := range sf.Lessons {
		titles[l.LessonID] = l.Title
		f.Lessons = append(f.Lessons, ui.LessonItem{
			LessonID:  l.LessonID,
			Title:     l.Title,
			Duration:  l.Duration,
			Completed: l.Completed,
			Percent:   l.Percentage,
			Current:   l.Current,
		})
	}
	for _, b := range sf.Bookmarks {
		f.Bookmarks = append(f.Bookmarks, ui.BookmarkItem{At: b.At, Note: b.Note})
	}
	for _, s := range sf.Scores {
		f.Scores = append(f.Scores, ui.ScoreRow{
			LessonID: s.LessonID,
			Title:    titles[s.LessonID],
			Prompts:  s.Prompts,
			Answered: s.Answered,
			Correct:  s.Correct,
			Percent:  s.Percent,
		})
	}
	return f
}

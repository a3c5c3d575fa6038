package tui

type View int

const (
	ViewLessons View = iota
	ViewReader
	ViewSearch
	ViewQuiz
)

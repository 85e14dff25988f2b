package main

type Mode int

const (
	ModeStartup Mode = iota
	ModeNormal
	ModeMove
	ModeTextInput
	ModeCommand
	ModeFileInput
	ModeConfirm
)

type FileOperation int

const (
	FileOpSave FileOperation = iota
	FileOpOpen
	FileOpExportFrames
	FileOpExportPNG
)

type ConfirmAction int

const (
	ConfirmQuit ConfirmAction = iota
	ConfirmDeleteShape
	ConfirmNewScene
	ConfirmOverwriteFile
)

const (
	sceneExt      = ".anim"
	logFile       = "animterm.log"
	moveStep      = 10.0 // scene units per key press in move mode
	rotateStep    = 15.0 // degrees
	scaleUp       = 1.1
	tweenLength   = 1.0 // seconds covered by a tween made with 'w'
	timelineTicks = 10
)

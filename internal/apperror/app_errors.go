package apperror

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrWrongPassword   = errors.New("wrong password")
	ErrAlreadyLoggedIn = errors.New("account is already logged in")
	ErrAccountExists   = errors.New("account already exists")

	ErrInvalidRoomName = errors.New("invalid room name")
	ErrRoomExists      = errors.New("room already exists")
	ErrRegistryFull    = errors.New("room registry is full")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")

	ErrInvalidCell  = errors.New("invalid cell")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrGameFinished = errors.New("game is already finished")
)

package handler

import (
	"errors"
	"regexp"

	"github.com/spillit/spillit/internal/ierr"
)

// RoomNameValidator gates the room identifiers clients may join. Any name
// that passes is accepted without checking the room directory; rooms exist
// implicitly from the first join.
type RoomNameValidator struct {
	roomNameRegex *regexp.Regexp
}

func NewRoomNameValidator() *RoomNameValidator {
	return &RoomNameValidator{
		roomNameRegex: regexp.MustCompile(`^[\w-]{1,64}$`),
	}
}

func (v *RoomNameValidator) Validate(roomName string) error {
	valid := v.roomNameRegex.MatchString(roomName)
	if !valid {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid room name"))
	}

	return nil
}

package catalog

import "errors"

var (
	ErrTheatreNotFound    = errors.New("theatre not found")
	ErrAuditoriumNotFound = errors.New("auditorium not found")
	ErrEmptyLayout        = errors.New("auditorium layout has no seats")
	ErrDuplicateSeatDef   = errors.New("auditorium layout contains duplicate seats")
	ErrShowtimeConflict   = errors.New("showroom already has a showtime at this start time")
	ErrPromoExists        = errors.New("promo code already exists")
	ErrBadPromoWindow     = errors.New("promotion validity window is inverted")
	ErrBadDiscount        = errors.New("invalid discount type or value")
)

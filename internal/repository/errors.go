package repository

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrSeatNotFound  = errors.New("seat not found")
	ErrSeatSold      = errors.New("seat already sold")
	ErrSeatHeld      = errors.New("seat held by another hold")
	ErrSeatNotHeld   = errors.New("seat not held by this hold")
	ErrHoldExpired   = errors.New("hold expired")
	ErrPromoUsed     = errors.New("promo code already used by this user")
	ErrDuplicateSeat = errors.New("duplicate seat in layout")
)

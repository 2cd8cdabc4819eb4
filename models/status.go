package models

// transitions maps a target state to the states it may be entered from.
type transitions[S comparable] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	for _, s := range t[to] {
		if s == from {
			return true
		}
	}
	return false
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingPaid      BookingStatus = "paid"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

var bookingTransitions = transitions[BookingStatus]{
	BookingPaid:      {BookingPending},
	BookingRejected:  {BookingPending},
	BookingCancelled: {BookingPending},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingPaid, BookingRejected, BookingCancelled:
		return true
	}
	return false
}

// Sources returns the states a booking may move to s from.
func (s BookingStatus) Sources() []BookingStatus {
	return bookingTransitions[s]
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	return bookingTransitions.allows(s, to)
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool {
	for _, from := range bookingTransitions {
		for _, f := range from {
			if f == s {
				return false
			}
		}
	}
	return true
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

var verificationTransitions = transitions[VerificationStatus]{
	VerificationApproved: {VerificationPending, VerificationRejected},
	VerificationRejected: {VerificationPending, VerificationApproved},
}

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

func (s VerificationStatus) Sources() []VerificationStatus {
	return verificationTransitions[s]
}

func (s VerificationStatus) CanTransitionTo(to VerificationStatus) bool {
	return verificationTransitions.allows(s, to)
}

type AdvertiseStatus string

const (
	AdvertiseShow AdvertiseStatus = "show"
	AdvertiseHide AdvertiseStatus = "hide"
)

var advertiseTransitions = transitions[AdvertiseStatus]{
	AdvertiseShow: {AdvertiseHide},
	AdvertiseHide: {AdvertiseShow},
}

func (s AdvertiseStatus) Valid() bool {
	return s == AdvertiseShow || s == AdvertiseHide
}

func (s AdvertiseStatus) CanTransitionTo(to AdvertiseStatus) bool {
	return advertiseTransitions.allows(s, to)
}

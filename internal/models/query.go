package models

// Unset is the sentinel for a limit or offset the caller did not supply.
const Unset = -1

// PageRequest is a resolved limit/offset pair.
type PageRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

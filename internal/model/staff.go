package model

import "time"

// Staff is a venue employee account used to authenticate bartender
// terminals.  Passwords are stored as bcrypt hashes only.
//
// Fields:
//  ID           – primary key identifier.
//  VenueID      – venue the account belongs to.
//  Email        – login identifier, unique.
//  PasswordHash – bcrypt hash of the password.
//  Role         – "staff" or "manager".
//  CreatedAt    – creation timestamp.
type Staff struct {
	ID           uint64    // staff.id
	VenueID      uint64    // staff.venue_id
	Email        string    // staff.email
	PasswordHash string    // staff.password_hash
	Role         string    // staff.role
	CreatedAt    time.Time // staff.created_at
}

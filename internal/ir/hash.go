package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainClause  = "lps/clause/v1"
	DomainGoal    = "lps/goal/v1"
	DomainProgram = "lps/program/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ClauseHash computes the content-addressed identity of a clause.
func ClauseHash(c Clause) string {
	return hashWithDomain(DomainClause, []byte(KeyAll(c.Head)+"<-"+KeyAll(c.Body)))
}

// GoalID identifies a goal tree by its root conjunction and firing time.
func GoalID(root []Term, firedAt int64) string {
	return hashWithDomain(DomainGoal, []byte(KeyAll(root)+"@"+Key(Int(firedAt))))
}

// ProgramHash computes a stable identity for a set of clauses given in
// declaration order.
func ProgramHash(clauses []Clause) string {
	h := sha256.New()
	h.Write([]byte(DomainProgram))
	h.Write([]byte{0x00})
	for _, c := range clauses {
		h.Write([]byte(KeyAll(c.Head)))
		h.Write([]byte("<-"))
		h.Write([]byte(KeyAll(c.Body)))
		h.Write([]byte{0x00})
	}
	return hex.EncodeToString(h.Sum(nil))
}

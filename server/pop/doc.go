// Package pop implements the retrieval side of the server: the
// three-phase POP3 session (authorization, transaction, update) over
// an immutable inbox snapshot taken at login.
//
// Message numbers are 1-based positions into that snapshot, so a
// client's numbering is stable for the whole transaction no matter
// what other sessions deliver meanwhile.
//
// DELE deviates from RFC 1939: the message is moved to the user's
// trash folder immediately instead of being marked and expunged at
// QUIT. RSET consequently reloads the live inbox rather than undoing
// deletions. This mirrors the behavior of the system this server
// replaces and is kept deliberately.
package pop

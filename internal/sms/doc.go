// Package sms talks to the mobile operator's self-service portal.
//
// Sending needs a two-step handshake: Login posts the credentials and keeps
// the session cookie, then fetches the SMS page to extract a single-use form
// token. Send posts the message with both. A Session never retries; callers
// build a fresh Session per delivery attempt because the portal session is
// short-lived and unreliable.
package sms

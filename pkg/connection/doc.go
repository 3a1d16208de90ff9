// Package connection provides session redial supervision.
//
// A secure association and its record engine are single-use: once a
// session closes, a fresh transport and engine must be built for the
// next attempt. The Supervisor owns that loop. It dials a new session,
// waits for it to end, and redials with exponential backoff.
//
// # Redial Strategy
//
// When a session ends or a dial fails, the supervisor backs off:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//  4. Continue at 30s until a dial succeeds
//  5. Reset to 1s once a session is established
//
// # Jitter
//
// To prevent thundering herd when multiple clients redial:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection

/*
Package resilience provides a circuit breaker for calls to the content
repository.

The breaker is closed while the repository answers. After Threshold
consecutive counted failures it opens and rejects calls with ErrCircuitOpen
for Cooldown, then lets Probes trial calls through (half-open). A failed probe
reopens it; enough successful probes close it again.

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[successes]-> Closed
	                                            |
	                                     [failure]-> Open

Settings.Counts decides which errors count. The remote client counts transport
errors and 5xx responses, never 404s: a missing _password.txt or sibling file
is an answer, not an outage.

	breaker := resilience.New("content", resilience.Settings{Threshold: 5})
	body, err := resilience.Do(ctx, breaker, func(ctx context.Context) ([]byte, error) {
		return fetch(ctx, url)
	})
*/
package resilience

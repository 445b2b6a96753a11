/*
Package resilience provides a small circuit breaker.

The breaker guards calls that fail in a way retrying will not fix soon,
such as launching a browser on a headless machine. After Threshold
consecutive failures the circuit opens and calls fail with ErrCircuitOpen
until Cooldown passes. One trial call is then let through: success closes
the circuit, failure reopens it.

	breaker := resilience.New("opener", resilience.Settings{
		Threshold: 3,
		Cooldown:  30 * time.Second,
	})

	err := breaker.Do(func() error {
		return launch(url)
	})

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                                       |
	                                                   [failure]
	                                                       |
	                                                       v
	                                                      Open
*/
package resilience

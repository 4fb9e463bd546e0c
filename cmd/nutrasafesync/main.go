// Command nutrasafesync exercises the local store and sync engine from
// the command line: initialize a database, log food/inventory entries,
// inspect the pending and dead-letter queues, and drive a manual sync.
package main

func main() {
	Execute()
}

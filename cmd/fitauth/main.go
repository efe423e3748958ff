// Command fitauth drives the FitLife authentication engine from a terminal:
// it serves the stand-in auth service, runs login flows against Redis-backed
// stores and inspects the audit log and the demo slot.
package main

func main() {
	Execute()
}

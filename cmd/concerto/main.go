// Command concerto administers a Concerto panel installation.
//
//	concerto setup [--check] [--starter-content]
//	concerto schema update [--force]
//	concerto query sql "<SQL>"
package main

func main() {
	Execute()
}

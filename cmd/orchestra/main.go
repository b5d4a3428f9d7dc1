// Command orchestra plans and runs requests with a team of AI agents.
package main

func main() {
	Execute()
}

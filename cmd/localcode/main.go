// Command localcode bootstraps and supervises a local LLM server container.
package main

func main() {
	Execute()
}

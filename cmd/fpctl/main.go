// Command fpctl inspects and edits file pool heaps.
package main

func main() {
	execute()
}

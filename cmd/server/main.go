// Command leaddesk runs the lead registration API and its admin back office.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

// Command guardctl is the policy-gated tool execution gateway: it serves
// the HITL approval and metrics surface, and offers CLI helpers for
// managing the policy store and the approval-API credential set.
package main

import "github.com/sentineltrace/guardctl/cmd/guardctl/cmd"

func main() {
	cmd.Execute()
}

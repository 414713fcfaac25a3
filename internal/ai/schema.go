package ai

import "fmt"

// schemaDescription renders the ledger layout for the model. It mirrors
// ClickHouseStore.EnsureSchema.
func schemaDescription(database, table string) string {
	return fmt.Sprintf(`Database: %s
Table: %s

Columns:
  - id           String        -- event id (UUID)
  - pool         String        -- pool identifier
  - version      UInt64        -- pool state version produced by the event, strictly increasing per pool
  - kind         String        -- event kind, see below
  - account      String        -- base58 account that performed the operation
  - timestamp    DateTime64(3) -- commit time (UTC)
  - direction    String        -- "1to2" sells token1, "2to1" sells token2; empty unless a swap
  - amount1      UInt256       -- token1 moved by the event
  - amount2      UInt256       -- token2 moved by the event
  - shares       UInt256       -- shares minted or burned; 0 otherwise
  - reserve1     UInt256       -- token1 reserve after the event
  - reserve2     UInt256       -- token2 reserve after the event
  - total_shares UInt256       -- shares outstanding after the event
`, database, table)
}

// Package ledger records which association jobs have completed so reruns of a
// batch can skip them.
//
// Three implementations are provided:
//
//   - MemoryLedger for tests and single-process runs
//   - StoreLedger, one small blob per job in a blobstore.BlobStore
//   - DynamoLedger, a DynamoDB table with conditional writes, safe for many
//     concurrent batch runners
//
// DynamoLedger table schema:
//
//	aws dynamodb create-table \
//	  --table-name xmatch-jobs \
//	  --attribute-definitions AttributeName=job_id,AttributeType=S \
//	  --key-schema AttributeName=job_id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package ledger

package postgres

const queryGetApplication = `
SELECT job_id, company, title, location, applied_at, current_status, notes, created_at, updated_at
FROM applications
WHERE job_id = $1
`

const queryGetHistory = `
SELECT id, status, source, promoted, recorded_at
FROM status_history
WHERE job_id = $1
ORDER BY recorded_at ASC, id ASC
`

const queryListApplications = `
SELECT job_id, company, title, location, applied_at, current_status, notes, created_at, updated_at
FROM applications
ORDER BY applied_at DESC, job_id
`

const queryInsertApplication = `
INSERT INTO applications (job_id, company, title, location, applied_at, current_status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

const queryInsertHistoryEntry = `
INSERT INTO status_history (id, job_id, status, source, promoted, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

const queryUpdateCurrentStatus = `
UPDATE applications
SET current_status = $1, updated_at = $2
WHERE job_id = $3
`

const querySetNotes = `
UPDATE applications
SET notes = $1, updated_at = $2
WHERE job_id = $3
`

const queryStatusCounts = `
SELECT current_status, COUNT(*)
FROM applications
GROUP BY current_status
`

const queryGetWatermark = `
SELECT mailbox, folder, last_received_at, last_message_id
FROM scan_watermarks
WHERE mailbox = $1 AND folder = $2
`

const querySaveWatermark = `
INSERT INTO scan_watermarks (mailbox, folder, last_received_at, last_message_id, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (mailbox, folder)
DO UPDATE SET last_received_at = $3, last_message_id = $4, updated_at = $5
`

const queryInsertSignal = `
INSERT INTO review_signals (id, message_id, reason, status, job_id_hint, company, subject, candidates, received_at, recorded_at, resolved)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false)
ON CONFLICT (message_id) DO NOTHING
`

const queryListSignals = `
SELECT id, message_id, reason, status, job_id_hint, company, subject, candidates, received_at, recorded_at, resolved
FROM review_signals
WHERE ($1 = false OR resolved = false)
ORDER BY recorded_at ASC
LIMIT $2
`

const queryResolveSignal = `
UPDATE review_signals
SET resolved = true
WHERE id = $1 AND resolved = false
`

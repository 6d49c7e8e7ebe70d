package mysql

// listingColumns is the SELECT list scanned by scanListing, in order.
const listingColumns = `
  id, owner_id,
  audit_status, online_status, reject_reason, update_status, update_payload, update_reject_reason,
  name_cn, name_en, address, city, star, ` + "`type`" + `, min_price, open_time, cover_image,
  images, tags, banner_text, room_types, nearby, discounts,
  version, created_at, updated_at, deleted_at`

const insertListingSQL = `
INSERT INTO listings
  (id, owner_id,
   audit_status, online_status, reject_reason, update_status, update_payload, update_reject_reason,
   name_cn, name_en, address, city, star, ` + "`type`" + `, min_price, open_time, cover_image,
   images, tags, banner_text, room_types, nearby, discounts,
   version, created_at, updated_at, deleted_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getListingSQL = `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`

// casUpdateSQL writes every mutable column only if the row still carries the
// version and state the caller read.
const casUpdateSQL = `
UPDATE listings SET
  audit_status         = ?,
  online_status        = ?,
  reject_reason        = ?,
  update_status        = ?,
  update_payload       = ?,
  update_reject_reason = ?,
  name_cn              = ?,
  name_en              = ?,
  address              = ?,
  city                 = ?,
  star                 = ?,
  ` + "`type`" + `               = ?,
  min_price            = ?,
  open_time            = ?,
  cover_image          = ?,
  images               = ?,
  tags                 = ?,
  banner_text          = ?,
  room_types           = ?,
  nearby               = ?,
  discounts            = ?,
  updated_at           = ?,
  deleted_at           = ?,
  version              = version + 1
WHERE id = ?
  AND version = ?
  AND audit_status = ?
  AND online_status = ?
  AND update_status = ?
  AND (deleted_at IS NOT NULL) = ?
`

const existsSQL = `SELECT 1 FROM listings WHERE id = ?`

const countByOwnerSQL = `SELECT COUNT(*) FROM listings WHERE owner_id = ? AND deleted_at IS NULL`

package db

const (
	InsertUser = `
		INSERT INTO users (etsy_user_id, username, shop_id, access_token, refresh_token, token_expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	GetUserByID = `
		SELECT id, etsy_user_id, username, shop_id, access_token, refresh_token, token_expires_at, created_at, updated_at
		FROM users WHERE id = ?
	`

	GetUserByEtsyID = `
		SELECT id, etsy_user_id, username, shop_id, access_token, refresh_token, token_expires_at, created_at, updated_at
		FROM users WHERE etsy_user_id = ?
	`

	UpdateUserTokens = `
		UPDATE users SET access_token = ?, refresh_token = ?, token_expires_at = ?, shop_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
)

const (
	orderColumns = `id, user_id, etsy_order_id, etsy_shop_id, buyer_email, buyer_name, total_amount, currency,
		status, production_status, filament_assigned, total_filament_used, created_at, updated_at, shipped_at, synced_at`

	InsertOrder = `
		INSERT INTO orders (user_id, etsy_order_id, etsy_shop_id, buyer_email, buyer_name, total_amount, currency, status, created_at, updated_at, shipped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetOrderByID = `
		SELECT ` + orderColumns + ` FROM orders WHERE id = ? AND user_id = ?
	`

	GetOrderByEtsyID = `
		SELECT ` + orderColumns + ` FROM orders WHERE etsy_order_id = ? AND user_id = ?
	`

	UpdateOrderProduction = `
		UPDATE orders SET production_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?
	`

	UpdateOrderFromSync = `
		UPDATE orders SET status = ?, updated_at = ?, shipped_at = ?, synced_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`

	UpdateOrderFilamentTotals = `
		UPDATE orders SET total_filament_used = total_filament_used + ?, filament_assigned = 1
		WHERE id = ? AND user_id = ?
	`

	InsertOrderItem = `
		INSERT INTO order_items (order_id, etsy_listing_id, title, quantity, price)
		VALUES (?, ?, ?, ?, ?)
	`

	GetOrderItems = `
		SELECT id, order_id, etsy_listing_id, title, quantity, price
		FROM order_items WHERE order_id = ? ORDER BY id ASC
	`

	InsertOrderNote = `
		INSERT INTO order_notes (order_id, body) VALUES (?, ?)
	`

	GetOrderNotes = `
		SELECT id, order_id, body, created_at FROM order_notes WHERE order_id = ? ORDER BY created_at DESC
	`

	InsertOrderCommunication = `
		INSERT INTO order_communications (order_id, channel, subject, body) VALUES (?, ?, ?, ?)
	`

	GetOrderCommunications = `
		SELECT id, order_id, channel, subject, body, created_at
		FROM order_communications WHERE order_id = ? ORDER BY created_at DESC
	`
)

const (
	filamentColumns = `id, user_id, color, material, initial_amount, current_amount, unit, cost_per_gram, low_stock_threshold, created_at, updated_at`

	InsertFilament = `
		INSERT INTO filaments (user_id, color, material, initial_amount, current_amount, unit, cost_per_gram, low_stock_threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetFilamentByID = `
		SELECT ` + filamentColumns + ` FROM filaments WHERE id = ? AND user_id = ?
	`

	ListFilaments = `
		SELECT ` + filamentColumns + ` FROM filaments WHERE user_id = ? ORDER BY material ASC, color ASC
	`

	UpdateFilament = `
		UPDATE filaments SET color = ?, material = ?, initial_amount = ?, current_amount = ?,
			unit = ?, cost_per_gram = ?, low_stock_threshold = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`

	DecrementFilamentAmount = `
		UPDATE filaments SET current_amount = MAX(0, current_amount - ?), updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`

	DeleteFilament = `DELETE FROM filaments WHERE id = ? AND user_id = ?`

	InsertFilamentUsage = `
		INSERT INTO filament_usage (filament_id, order_id, amount_used, description)
		VALUES (?, ?, ?, ?)
	`

	GetFilamentUsageForOrder = `
		SELECT fu.id, fu.filament_id, fu.order_id, fu.amount_used, fu.description, fu.created_at
		FROM filament_usage fu
		JOIN filaments f ON f.id = fu.filament_id AND f.user_id = ?
		WHERE fu.order_id = ?
		ORDER BY fu.created_at ASC
	`
)

const (
	printerColumns = `id, user_id, name, connection_type, serial_number, access_code, ip_address, status, last_seen_at, created_at, updated_at`

	InsertPrinter = `
		INSERT INTO printers (user_id, name, connection_type, serial_number, access_code, ip_address, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	GetPrinterByID = `
		SELECT ` + printerColumns + ` FROM printers WHERE id = ? AND user_id = ?
	`

	ListPrinters = `
		SELECT ` + printerColumns + ` FROM printers WHERE user_id = ? ORDER BY name ASC
	`

	UpdatePrinter = `
		UPDATE printers SET name = ?, connection_type = ?, serial_number = ?, access_code = ?, ip_address = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`

	UpdatePrinterStatus = `
		UPDATE printers SET status = ?, last_seen_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`

	DeletePrinter = `DELETE FROM printers WHERE id = ? AND user_id = ?`

	UpsertLoadedMaterial = `
		INSERT INTO loaded_materials (printer_id, slot_index, material_type, color, weight_grams, remaining_pct, vendor, cost_per_kg, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(printer_id, slot_index) DO UPDATE SET
			material_type = excluded.material_type, color = excluded.color,
			weight_grams = excluded.weight_grams, remaining_pct = excluded.remaining_pct,
			vendor = excluded.vendor, cost_per_kg = excluded.cost_per_kg, updated_at = CURRENT_TIMESTAMP
	`

	ListLoadedMaterials = `
		SELECT lm.id, lm.printer_id, lm.slot_index, lm.material_type, lm.color, lm.weight_grams, lm.remaining_pct, lm.vendor, lm.cost_per_kg, lm.updated_at
		FROM loaded_materials lm
		JOIN printers p ON p.id = lm.printer_id AND p.user_id = ?
		WHERE lm.printer_id = ?
		ORDER BY lm.slot_index ASC
	`

	DeleteLoadedMaterial = `
		DELETE FROM loaded_materials WHERE printer_id = ? AND slot_index = ?
			AND printer_id IN (SELECT id FROM printers WHERE user_id = ?)
	`

	GetNotificationPreference = `
		SELECT np.id, np.printer_id, np.notify_start, np.notify_complete, np.notify_fail, np.notify_material_change,
			np.notify_maintenance, np.email_enabled, np.email_address, np.webhook_url, np.created_at, np.updated_at
		FROM notification_preferences np
		JOIN printers p ON p.id = np.printer_id AND p.user_id = ?
		WHERE np.printer_id = ?
	`

	UpsertNotificationPreference = `
		INSERT INTO notification_preferences (printer_id, notify_start, notify_complete, notify_fail, notify_material_change, notify_maintenance, email_enabled, email_address, webhook_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(printer_id) DO UPDATE SET
			notify_start = excluded.notify_start, notify_complete = excluded.notify_complete,
			notify_fail = excluded.notify_fail, notify_material_change = excluded.notify_material_change,
			notify_maintenance = excluded.notify_maintenance, email_enabled = excluded.email_enabled,
			email_address = excluded.email_address, webhook_url = excluded.webhook_url, updated_at = CURRENT_TIMESTAMP
	`
)

const (
	printColumns = `sp.id, sp.printer_id, sp.order_id, sp.job_name, sp.file_name, sp.status, sp.scheduled_start,
		sp.estimated_duration_minutes, sp.material_type, sp.material_slot, sp.nozzle_temp, sp.bed_temp, sp.print_speed,
		sp.priority, sp.started_at, sp.completed_at, sp.failed_reason, sp.notes, sp.created_at, sp.updated_at`

	printOwnerJoin = `
		FROM scheduled_prints sp
		JOIN printers p ON p.id = sp.printer_id AND p.user_id = ?`

	InsertScheduledPrint = `
		INSERT INTO scheduled_prints (printer_id, order_id, job_name, file_name, status, scheduled_start,
			estimated_duration_minutes, material_type, material_slot, nozzle_temp, bed_temp, print_speed, priority, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetScheduledPrintByID = `
		SELECT ` + printColumns + printOwnerJoin + ` WHERE sp.id = ?
	`

	// SQLite sorts NULLs first in ascending order, which is exactly the
	// "as soon as possible" semantics the queue wants.
	GetPrintQueue = `
		SELECT ` + printColumns + printOwnerJoin + `
		WHERE sp.printer_id = ? AND sp.status IN ('queued', 'scheduled')
		ORDER BY sp.priority DESC, sp.scheduled_start ASC
	`

	UpdateScheduledPrintRow = `
		UPDATE scheduled_prints SET
			job_name = ?, file_name = ?, status = ?, scheduled_start = ?, estimated_duration_minutes = ?,
			material_type = ?, material_slot = ?, nozzle_temp = ?, bed_temp = ?, print_speed = ?,
			priority = ?, started_at = ?, completed_at = ?, failed_reason = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND printer_id IN (SELECT id FROM printers WHERE user_id = ?)
	`

	DeleteScheduledPrint = `
		DELETE FROM scheduled_prints WHERE id = ?
			AND printer_id IN (SELECT id FROM printers WHERE user_id = ?)
	`
)

const (
	GetProductProfile = `
		SELECT id, user_id, etsy_listing_id, duration_minutes, material_type, nozzle_temp, bed_temp, print_speed
		FROM product_profiles WHERE user_id = ? AND etsy_listing_id = ?
	`

	UpsertProductProfile = `
		INSERT INTO product_profiles (user_id, etsy_listing_id, duration_minutes, material_type, nozzle_temp, bed_temp, print_speed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, etsy_listing_id) DO UPDATE SET
			duration_minutes = excluded.duration_minutes, material_type = excluded.material_type,
			nozzle_temp = excluded.nozzle_temp, bed_temp = excluded.bed_temp, print_speed = excluded.print_speed
	`

	ListProductProfiles = `
		SELECT id, user_id, etsy_listing_id, duration_minutes, material_type, nozzle_temp, bed_temp, print_speed
		FROM product_profiles WHERE user_id = ? ORDER BY etsy_listing_id ASC
	`
)

const (
	CountOrdersByProductionStatus = `
		SELECT production_status, COUNT(*) FROM orders WHERE user_id = ? GROUP BY production_status
	`

	SumOrderRevenue = `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM orders WHERE user_id = ?
	`

	CountPrintsByStatus = `
		SELECT sp.status, COUNT(*)` + printOwnerJoin + `
		GROUP BY sp.status
	`

	SumFilamentStock = `
		SELECT COUNT(*), COALESCE(SUM(current_amount), 0),
			COALESCE(SUM(CASE WHEN low_stock_threshold > 0 AND current_amount <= low_stock_threshold THEN 1 ELSE 0 END), 0)
		FROM filaments WHERE user_id = ?
	`

	SumFilamentConsumed = `
		SELECT COALESCE(SUM(fu.amount_used), 0)
		FROM filament_usage fu
		JOIN filaments f ON f.id = fu.filament_id AND f.user_id = ?
	`
)

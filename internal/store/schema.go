package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS billing_records (
    file_path            TEXT NOT NULL,
    source_row           INTEGER NOT NULL,
    item_id              TEXT,
    item_name            TEXT NOT NULL,
    unit_service_name    TEXT,
    lob                  TEXT NOT NULL,
    report_date          TEXT,
    requested_amount     REAL NOT NULL,
    billed_amount        REAL NOT NULL,
    lines                INTEGER NOT NULL,
    prior_requested      REAL NOT NULL,
    prior_billed         REAL NOT NULL,
    prior_lines          INTEGER NOT NULL,
    third_billed         REAL,
    third_lines          INTEGER,
    has_third            INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (file_path, source_row)
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    row_count            INTEGER NOT NULL DEFAULT 0,
    empty_rows           INTEGER NOT NULL DEFAULT 0,
    coerced_cells        INTEGER NOT NULL DEFAULT 0,
    parsed_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS business_days (
    calendar_key         TEXT NOT NULL,
    year                 INTEGER NOT NULL,
    month                INTEGER NOT NULL,
    total_days           INTEGER NOT NULL,
    weekend_days         INTEGER NOT NULL,
    holiday_days         INTEGER NOT NULL,
    business_days        INTEGER NOT NULL,
    holidays_json        TEXT NOT NULL,
    computed_at          TEXT NOT NULL,
    PRIMARY KEY (calendar_key, year, month)
);

CREATE INDEX IF NOT EXISTS idx_billing_lob ON billing_records(lob);
`

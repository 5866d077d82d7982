package db

const schema = `
CREATE TABLE IF NOT EXISTS editorial_tasks (
    id               TEXT PRIMARY KEY,
    website_id       TEXT NOT NULL,
    title            TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    task_type        TEXT NOT NULL,
    status           TEXT NOT NULL,
    priority         TEXT NOT NULL,
    assigned_agent_id TEXT NOT NULL DEFAULT '',
    assigned_user_id  TEXT NOT NULL DEFAULT '',
    depends_on       JSONB NOT NULL DEFAULT '[]',
    blocks           JSONB NOT NULL DEFAULT '[]',
    sitemap_targets  JSONB NOT NULL DEFAULT '[]',
    seo              JSONB NOT NULL DEFAULT '{}',
    word_count_target INTEGER NOT NULL DEFAULT 0,
    current_phase    TEXT NOT NULL DEFAULT '',
    phases_completed JSONB NOT NULL DEFAULT '[]',
    tags             JSONB NOT NULL DEFAULT '[]',
    metadata         JSONB NOT NULL DEFAULT '{}',
    due_date         TIMESTAMPTZ,
    actual_hours     DOUBLE PRECISION,
    yaml_file_path   TEXT NOT NULL DEFAULT '',
    yaml_file_hash   TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_editorial_tasks_website ON editorial_tasks (website_id, status);

CREATE TABLE IF NOT EXISTS content_items (
    id         TEXT PRIMARY KEY,
    website_id TEXT NOT NULL,
    title      TEXT NOT NULL,
    slug       TEXT NOT NULL,
    status     TEXT NOT NULL,
    author_type TEXT NOT NULL DEFAULT '',
    author_id   TEXT NOT NULL DEFAULT '',
    body       JSONB NOT NULL DEFAULT '[]',
    page_id    TEXT NOT NULL DEFAULT '',
    metadata   JSONB NOT NULL DEFAULT '{}',
    editorial_task_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_content_items_task
    ON content_items (editorial_task_id) WHERE editorial_task_id <> '';

CREATE TABLE IF NOT EXISTS question_tickets (
    id          TEXT PRIMARY KEY,
    website_id  TEXT NOT NULL,
    creator_agent_id TEXT NOT NULL,
    target_role TEXT NOT NULL DEFAULT '',
    target_user_id TEXT NOT NULL DEFAULT '',
    question    TEXT NOT NULL,
    answer      TEXT NOT NULL DEFAULT '',
    answered_by TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
    id           TEXT PRIMARY KEY,
    website_id   TEXT NOT NULL,
    name         TEXT NOT NULL,
    capabilities JSONB NOT NULL DEFAULT '[]',
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS page_sections (
    id         TEXT PRIMARY KEY,
    page_id    TEXT NOT NULL,
    type       TEXT NOT NULL,
    variant    TEXT NOT NULL DEFAULT '',
    position   INTEGER NOT NULL,
    content    JSONB NOT NULL DEFAULT '{}',
    prompts    JSONB NOT NULL DEFAULT '{}',
    ai_hints   JSONB NOT NULL DEFAULT '{}',
    collection_source JSONB,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_page_sections_page ON page_sections (page_id, position);

CREATE TABLE IF NOT EXISTS section_versions (
    id         TEXT PRIMARY KEY,
    section_id TEXT NOT NULL,
    author     TEXT NOT NULL,
    content    JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_section_versions_section ON section_versions (section_id, created_at);

CREATE TABLE IF NOT EXISTS website_schedules (
    id                 TEXT PRIMARY KEY,
    website_id         TEXT NOT NULL,
    schedule_type      TEXT NOT NULL,
    frequency          TEXT NOT NULL DEFAULT '',
    cron_expression    TEXT NOT NULL,
    enabled            BOOLEAN NOT NULL DEFAULT TRUE,
    engine_schedule_id TEXT NOT NULL DEFAULT '',
    sync_status        TEXT NOT NULL DEFAULT 'pending',
    last_run_at        TIMESTAMPTZ,
    next_run_at        TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL,
    UNIQUE (website_id, schedule_type)
);

CREATE TABLE IF NOT EXISTS schedule_executions (
    id            TEXT PRIMARY KEY,
    website_id    TEXT NOT NULL,
    schedule_id   TEXT,
    schedule_type TEXT NOT NULL,
    workflow_type TEXT NOT NULL DEFAULT '',
    workflow_id   TEXT NOT NULL DEFAULT '',
    trigger_type  TEXT NOT NULL,
    status        TEXT NOT NULL,
    scheduled_at  TIMESTAMPTZ,
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ,
    triggered_by  TEXT NOT NULL DEFAULT '',
    result        JSONB,
    error         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_schedule_executions_website
    ON schedule_executions (website_id, started_at);

CREATE TABLE IF NOT EXISTS batch_jobs (
    id                TEXT PRIMARY KEY,
    batch_id          TEXT NOT NULL,
    job_type          TEXT NOT NULL,
    collection_type   TEXT NOT NULL,
    website_id        TEXT NOT NULL,
    status            TEXT NOT NULL,
    items_count       INTEGER NOT NULL DEFAULT 0,
    items_processed   INTEGER NOT NULL DEFAULT 0,
    results_processed BOOLEAN NOT NULL DEFAULT FALSE,
    results_url       TEXT NOT NULL DEFAULT '',
    error             TEXT NOT NULL DEFAULT '',
    metadata          JSONB NOT NULL DEFAULT '{}',
    created_at        TIMESTAMPTZ NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS collection_items (
    id              TEXT PRIMARY KEY,
    website_id      TEXT NOT NULL,
    collection_type TEXT NOT NULL,
    custom_id       TEXT NOT NULL DEFAULT '',
    data            JSONB NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS generation_jobs (
    id              TEXT PRIMARY KEY,
    website_id      TEXT NOT NULL,
    mode            TEXT NOT NULL,
    status          TEXT NOT NULL,
    total_tasks     INTEGER NOT NULL DEFAULT 0,
    completed_tasks INTEGER NOT NULL DEFAULT 0,
    errors          JSONB NOT NULL DEFAULT '[]',
    started_at      TIMESTAMPTZ NOT NULL,
    finished_at     TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_generation_jobs_active
    ON generation_jobs (website_id) WHERE status = 'running';

CREATE TABLE IF NOT EXISTS state_audit_log (
    id          TEXT PRIMARY KEY,
    entity_id   TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    event       TEXT NOT NULL,
    actor       TEXT NOT NULL,
    actor_id    TEXT NOT NULL DEFAULT '',
    from_state  TEXT NOT NULL,
    to_state    TEXT NOT NULL,
    metadata    JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_state_audit_log_entity
    ON state_audit_log (entity_type, entity_id, created_at);
`

package sqlinline

const QSelectIntegrationToken = `--sql fe5dae67-40fc-4f56-ac80-c0a343cc833d
select token
from integration_tokens
where provider = $1::text
  and token <> ''
limit 1;
`

// QUpsertIntegrationToken merges properties so earlier metadata survives a
// key rotation.
const QUpsertIntegrationToken = `--sql c00bd2a5-3cbb-48df-88ae-80319548dd80
insert into integration_tokens (id, provider, token, properties)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`

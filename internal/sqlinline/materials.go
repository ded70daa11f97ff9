package sqlinline

const QInsertMaterial = `--sql 2a8d48af-a86a-47a7-ba33-40e29e80f422
insert into materials (id, project_id, filename, relative_path, url, created_at)
values ($1::text, $2::text, $3::text, $4::text, $5::text, $6::timestamptz);
`

const QSelectMaterialByID = `--sql a47b7346-e165-441d-b284-9219ad18de1b
select id, project_id, filename, relative_path, url, created_at
from materials
where id = $1::text
limit 1;
`

const QListMaterialsAll = `--sql 716817f4-7da3-4a32-8051-f04096085128
select id, project_id, filename, relative_path, url, created_at
from materials
order by created_at desc, id desc;
`

const QListMaterialsUnscoped = `--sql 876c7a0c-424f-4a50-a882-27ad215ceb86
select id, project_id, filename, relative_path, url, created_at
from materials
where project_id is null
order by created_at desc, id desc;
`

const QListMaterialsByProject = `--sql 9dd83312-6727-4799-a06e-2c5e179d6f32
select id, project_id, filename, relative_path, url, created_at
from materials
where project_id = $1::text
order by created_at desc, id desc;
`

const QDeleteMaterial = `--sql 7c9bd33c-9b6c-4491-9389-9f7ef548bb37
delete from materials
where id = $1::text;
`
